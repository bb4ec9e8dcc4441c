package smarttable

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poku-e/smarttable/browser"
)

// tableServer renders a minimal smart table. Pages under /remote carry the
// replaceable region, pages under /plain do not. A search for "missing"
// answers 404 and a search for "orphan" answers a page without region.
type tableServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

func newTableServer(t *testing.T) *tableServer {
	t.Helper()
	ts := &tableServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tableServer) handle(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	ts.requests = append(ts.requests, r.URL.RequestURI())
	ts.mu.Unlock()

	q := r.URL.Query()
	search := q.Get("st_search")
	if search == "missing" {
		http.NotFound(w, r)
		return
	}

	region := `<div id="table">`
	if strings.HasPrefix(r.URL.Path, "/remote") && search != "orphan" {
		region = `<div id="table" data-smart-table-remote>`
	}

	checked := ""
	if q.Get("active") != "" {
		checked = " checked"
	}
	extra := ""
	if search != "" {
		extra = `<input type="checkbox" name="extra" value="yes">`
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html><body>
<input type="search" class="smart_table_search" name="st_search" value="%s">
%s
  <div class="smart_table_extra_filters">
    <input type="checkbox" name="active" value="1"%s>
    <select name="card"><option value="">any</option><option value="visa">VISA</option></select>
    <input type="text" name="owner">
    <input type="radio" name="category" value="" checked>
    <input type="radio" name="category" value="rails">
    <input type="date" name="since">
    %s
  </div>
  <p class="query">%s</p>
  <a id="next" data-smart-table-remote-link href="%s?st_page=2">next</a>
  <a id="plain" href="%s?plain=1">plain</a>
</div>
</body></html>`,
		html.EscapeString(search), region, checked, extra,
		html.EscapeString(r.URL.RawQuery), r.URL.Path, r.URL.Path)
}

func (ts *tableServer) Requests() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.requests...)
}

func (ts *tableServer) Reset() {
	ts.mu.Lock()
	ts.requests = nil
	ts.mu.Unlock()
}

// recordingWindow records full navigations instead of performing them.
type recordingWindow struct {
	*browser.Browser

	mu          sync.Mutex
	navigations []string
}

func (w *recordingWindow) Navigate(_ context.Context, target string) error {
	w.mu.Lock()
	w.navigations = append(w.navigations, target)
	w.mu.Unlock()
	return nil
}

func (w *recordingWindow) Navigations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigations...)
}

// newHarness loads path from a fresh table server into a browser and
// initializes a controller on it.
func newHarness(t *testing.T, path string) (*tableServer, *recordingWindow, *Controller) {
	t.Helper()
	ts := newTableServer(t)
	win := &recordingWindow{Browser: browser.New()}
	require.NoError(t, win.Load(context.Background(), ts.URL+path))

	c, err := New(win, win, DefaultConfig())
	require.NoError(t, err)
	c.Init()
	ts.Reset()
	return ts, win, c
}

// liveHarness is newHarness with real full navigations.
func liveHarness(t *testing.T, path string) (*tableServer, *browser.Browser, *Controller) {
	t.Helper()
	ts := newTableServer(t)
	b := browser.New()

	c, err := New(b, b, DefaultConfig())
	require.NoError(t, err)
	c.Init()

	require.NoError(t, b.Load(context.Background(), ts.URL+path))
	ts.Reset()
	return ts, b, c
}
