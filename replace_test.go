package smarttable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/poku-e/smarttable/browser"
	"github.com/poku-e/smarttable/dom"
)

type snapshot struct {
	html     string
	location string
	history  int
}

func takeSnapshot(t *testing.T, win *recordingWindow) snapshot {
	t.Helper()
	out, err := win.Page().HTML()
	require.NoError(t, err)
	return snapshot{
		html:     out,
		location: win.Page().Location().String(),
		history:  win.Page().HistoryLen(),
	}
}

func TestFailedFetchLeavesPageUntouched(t *testing.T) {
	for _, search := range []string{"missing", "orphan"} {
		t.Run(search, func(t *testing.T) {
			ts, win, c := newHarness(t, "/remote?x=1")
			before := takeSnapshot(t, win)

			var fired bool
			c.OnUpdate(func(UpdateDetail) { fired = true })

			require.NoError(t, win.Type(".smart_table_search", search))
			c.Wait()

			require.Len(t, ts.Requests(), 1)
			// the typed value is the only difference
			require.NoError(t, win.Page().SetValue(win.Page().First(".smart_table_search"), ""))
			after := takeSnapshot(t, win)
			assert.Equal(t, before, after)
			assert.False(t, fired)
			assert.Empty(t, win.Navigations())
		})
	}
}

func TestFetchAndReplaceErrors(t *testing.T) {
	ts, win, c := newHarness(t, "/remote")
	ctx := context.Background()

	err := c.FetchAndReplace(ctx, ts.URL+"/remote?st_search=missing", DefaultRegionSelector)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)

	err = c.FetchAndReplace(ctx, ts.URL+"/remote?st_search=orphan", DefaultRegionSelector)
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, plain, pc := newHarness(t, "/plain")
	before := takeSnapshot(t, plain)
	err = pc.FetchAndReplace(ctx, ts.URL+"/remote", DefaultRegionSelector)
	assert.ErrorIs(t, err, ErrRegionNotFound)
	assert.Equal(t, before, takeSnapshot(t, plain))

	assert.NotNil(t, win.Page().First(DefaultRegionSelector))
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) (*browser.Response, error) {
	return nil, errors.New("connection refused")
}

func TestFetchAndReplaceTransportError(t *testing.T) {
	_, win, _ := newHarness(t, "/remote")
	c, err := New(win, failingFetcher{}, DefaultConfig())
	require.NoError(t, err)

	before := takeSnapshot(t, win)
	err = c.FetchAndReplace(context.Background(), "http://unused/remote", DefaultRegionSelector)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, before, takeSnapshot(t, win))
}

func TestPartialReplacementRewiresNewControls(t *testing.T) {
	ts, win, c := newHarness(t, "/remote?keep=1")
	page := win.Page()
	oldRegion := page.First(DefaultRegionSelector)
	require.Nil(t, page.First("input[name=extra]"), "extra filter appears only after a search")

	var (
		mu      sync.Mutex
		details []UpdateDetail
	)
	c.OnUpdate(func(d UpdateDetail) {
		mu.Lock()
		details = append(details, d)
		mu.Unlock()
	})

	require.NoError(t, win.Type(".smart_table_search", "foo"))
	c.Wait()

	newRegion := page.First(DefaultRegionSelector)
	require.NotNil(t, newRegion)
	assert.NotSame(t, oldRegion, newRegion)
	assert.False(t, page.Contains(oldRegion))
	assert.Equal(t, 1, page.HistoryLen())
	assert.Equal(t, map[string]string{"keep": "1", "st_page": "1", "st_search": "foo"},
		queryOf(t, page.Location().String()))
	assert.Equal(t, []UpdateDetail{{ReplacedElementSelector: DefaultRegionSelector}}, details)

	// the extra checkbox only exists in the fetched fragment
	ts.Reset()
	require.NoError(t, win.Check("input[name=extra]", true))
	c.Wait()

	require.Len(t, ts.Requests(), 1)
	assert.Equal(t, map[string]string{"keep": "1", "st_page": "1", "st_search": "foo", "extra": "yes"},
		queryOf(t, ts.Requests()[0]))
	assert.Equal(t, "yes", page.Location().Query().Get("extra"))
	assert.Empty(t, win.Navigations())
}

func TestSearchOutsideRegionStaysSingleBound(t *testing.T) {
	_, win, c := newHarness(t, "/remote")
	page := win.Page()
	search := page.First(".smart_table_search")

	require.NoError(t, win.Type(".smart_table_search", "a"))
	c.Wait()
	require.NoError(t, win.Type(".smart_table_search", "b"))
	c.Wait()

	assert.Equal(t, 1, page.ListenerCount(search))
	assert.Equal(t, "b", page.Location().Query().Get("st_search"))
}

func TestUpdateOrdering(t *testing.T) {
	_, win, c := newHarness(t, "/remote")
	page := win.Page()

	var (
		location  string
		listeners int
	)
	page.ListenDocument(DefaultUpdateEvent, func(*dom.Event) {
		location = page.Location().Query().Get("st_search")
		listeners = page.ListenerCount(page.First("input[name=extra]"))
	})

	require.NoError(t, win.Type(".smart_table_search", "foo"))
	c.Wait()

	assert.Equal(t, "foo", location, "location is rewritten before the event")
	assert.Equal(t, 1, listeners, "new region is attached before the event")
}

func TestRemoteLinkAlwaysPartial(t *testing.T) {
	ts, win, c := newHarness(t, "/remote?st_search=foo")

	require.NoError(t, win.Click(context.Background(), "#next"))
	c.Wait()

	assert.Empty(t, win.Navigations())
	require.Len(t, ts.Requests(), 1)
	assert.Equal(t, "/remote?st_page=2", ts.Requests()[0])
	assert.Equal(t, "/remote?st_page=2", win.Page().Location().RequestURI())
	assert.Equal(t, 1, win.Page().HistoryLen())

	// the link inside the swapped region is wired too
	ts.Reset()
	require.NoError(t, win.Click(context.Background(), "#next"))
	c.Wait()
	assert.Len(t, ts.Requests(), 1)
}

func TestPlainLinkFollowsFullNavigation(t *testing.T) {
	ts, win, c := newHarness(t, "/remote")

	require.NoError(t, win.Click(context.Background(), "#plain"))
	c.Wait()

	assert.Equal(t, []string{"/remote?plain=1"}, ts.Requests())
	assert.Equal(t, "1", win.Page().Location().Query().Get("plain"))
}

func TestOverlappingFetchesAllReplace(t *testing.T) {
	ts, win, c := newHarness(t, "/remote")
	page := win.Page()
	const n = 200

	var updates atomic.Int32
	c.OnUpdate(func(UpdateDetail) { updates.Add(1) })

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := fmt.Sprintf("%s/remote?st_search=foo&n=%d", ts.URL, i)
			errs <- c.FetchAndReplace(context.Background(), target, DefaultRegionSelector)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, n, updates.Load())

	require.Len(t, page.Find(DefaultRegionSelector), 1)
	assert.Equal(t, 1, page.HistoryLen())

	// the region left on the page belongs to the location left on the page
	var rendered string
	require.NoError(t, page.View(func(doc *goquery.Document) {
		rendered = doc.Find(DefaultRegionSelector + " p.query").Text()
	}))
	assert.Equal(t, page.Location().RawQuery, rendered)
	assert.Equal(t, 1, page.ListenerCount(page.First("input[name=extra]")))
}

// staticFetcher answers every request with the same 200 page.
type staticFetcher struct{ body string }

func (f staticFetcher) Fetch(context.Context, string) (*browser.Response, error) {
	return &browser.Response{StatusCode: 200, Body: []byte(f.body)}, nil
}

func TestUnresolvableTargetLeavesPageUntouched(t *testing.T) {
	_, win, _ := newHarness(t, "/remote")
	c, err := New(win, staticFetcher{body: `<div data-smart-table-remote><p>new</p></div>`}, DefaultConfig())
	require.NoError(t, err)

	var fired bool
	c.OnUpdate(func(UpdateDetail) { fired = true })

	before := takeSnapshot(t, win)
	err = c.FetchAndReplace(context.Background(), "http://[::1", DefaultRegionSelector)
	require.Error(t, err)
	assert.Equal(t, before, takeSnapshot(t, win))
	assert.False(t, fired)
}

func TestFailedReplaceIsLoggedWithRequestID(t *testing.T) {
	_, win, _ := newHarness(t, "/remote")
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(win, failingFetcher{}, DefaultConfig(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.Error(t, c.FetchAndReplace(context.Background(), "http://unused/remote", DefaultRegionSelector))

	entries := logs.FilterMessage("region not replaced").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["request_id"])
	assert.Equal(t, "http://unused/remote", fields["url"])
	assert.Contains(t, fields["error"], "connection refused")
}
