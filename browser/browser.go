// Package browser drives a dom.Page headlessly: it loads documents over
// HTTP, performs full and client-side navigations and simulates the user
// actions a smart table reacts to.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/poku-e/smarttable/dom"
)

// Ready signals fired after a document is installed.
const (
	EventTurbolinksLoad = "turbolinks:load"
	EventPageLoad       = "page:load"
)

var (
	// ErrNotFound is returned when a user action targets a selector that
	// matches nothing.
	ErrNotFound = errors.New("browser: no element matches selector")
)

// StatusError reports a navigation answered with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("browser: %s answered %d", e.URL, e.StatusCode)
}

// Fetcher performs GET requests.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*Response, error)
}

// Browser owns one page and the fetcher used to load it.
type Browser struct {
	page    *dom.Page
	fetcher Fetcher
	logger  *zap.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(b *Browser) { b.fetcher = f }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns a browser with an empty page.
func New(opts ...Option) *Browser {
	b := &Browser{
		page:   dom.NewPage(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fetcher == nil {
		b.fetcher = NewHTTPFetcher(nil)
	}
	b.logger = b.logger.Named("browser")
	return b
}

// Page returns the browsing context.
func (b *Browser) Page() *dom.Page { return b.page }

// Fetch GETs target, resolved against the current location.
func (b *Browser) Fetch(ctx context.Context, target string) (*Response, error) {
	u, err := b.page.Resolve(target)
	if err != nil {
		return nil, err
	}
	return b.fetcher.Fetch(ctx, u.String())
}

// Load performs a full navigation: the document is fetched and parsed,
// installed in the page and DOMContentLoaded is fired.
func (b *Browser) Load(ctx context.Context, target string) error {
	if err := b.open(ctx, target); err != nil {
		return err
	}
	b.page.DispatchDocument(dom.NewEvent(dom.EventDOMContentLoaded))
	return nil
}

// Navigate is Load; it satisfies the controller's full-navigation hook.
func (b *Browser) Navigate(ctx context.Context, target string) error {
	return b.Load(ctx, target)
}

// Visit performs a client-side navigation the way Turbolinks does: the new
// document replaces the old one and turbolinks:load is fired instead of
// DOMContentLoaded.
func (b *Browser) Visit(ctx context.Context, target string) error {
	if err := b.open(ctx, target); err != nil {
		return err
	}
	b.page.DispatchDocument(dom.NewEvent(EventTurbolinksLoad))
	return nil
}

func (b *Browser) open(ctx context.Context, target string) error {
	resp, err := b.Fetch(ctx, target)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{URL: resp.URL.String(), StatusCode: resp.StatusCode}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", resp.URL, err)
	}
	b.page.Open(doc, resp.URL)
	b.logger.Debug("document loaded", zap.String("url", resp.URL.String()))
	return nil
}

func (b *Browser) first(selector string) (*html.Node, error) {
	n := b.page.First(selector)
	if n == nil {
		return nil, fmt.Errorf("%q: %w", selector, ErrNotFound)
	}
	return n, nil
}

// Type sets the value of the first control matching selector and fires
// change, like a user typing and leaving the field.
func (b *Browser) Type(selector, text string) error {
	n, err := b.first(selector)
	if err != nil {
		return err
	}
	if err := b.page.SetValue(n, text); err != nil {
		return err
	}
	b.page.Dispatch(n, dom.NewEvent(dom.EventChange))
	return nil
}

// Check sets the checked state of the first checkbox or radio matching
// selector and fires change.
func (b *Browser) Check(selector string, checked bool) error {
	n, err := b.first(selector)
	if err != nil {
		return err
	}
	if err := b.page.SetChecked(n, checked); err != nil {
		return err
	}
	b.page.Dispatch(n, dom.NewEvent(dom.EventChange))
	return nil
}

// Select picks the option with value in the first select matching selector
// and fires change.
func (b *Browser) Select(selector, value string) error {
	n, err := b.first(selector)
	if err != nil {
		return err
	}
	if err := b.page.SelectOption(n, value); err != nil {
		return err
	}
	b.page.Dispatch(n, dom.NewEvent(dom.EventChange))
	return nil
}

// Click fires click on the first element matching selector. When no
// listener prevents the default action and the element is a link, the
// browser follows it with a full navigation.
func (b *Browser) Click(ctx context.Context, selector string) error {
	n, err := b.first(selector)
	if err != nil {
		return err
	}
	ev := dom.NewEvent(dom.EventClick)
	b.page.Dispatch(n, ev)
	if ev.DefaultPrevented() || n.DataAtom != atom.A {
		return nil
	}
	href, ok := b.page.Attr(n, "href")
	if !ok {
		return nil
	}
	return b.Load(ctx, href)
}
