// Package smarttable keeps a server-rendered, paginated, sortable and
// filterable table in sync with the URL query string.
//
// The Controller wires the search field, the extra filters and the remote
// links of a page. Every change is merged into the current URL (resetting the
// page number) and either loaded with a full navigation or, when the page
// carries a replaceable region, fetched and swapped into place while the
// address bar is rewritten. Swapped regions are re-wired, so their fresh
// controls keep working.
package smarttable

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/poku-e/smarttable/browser"
	"github.com/poku-e/smarttable/dom"
	"github.com/poku-e/smarttable/query"
)

var (
	// ErrRegionNotFound is returned when the live document or the fetched
	// response lacks the replaceable region.
	ErrRegionNotFound = errors.New("smarttable: replaceable region not found")
	// ErrNoLocation is returned when the page has no URL to merge into.
	ErrNoLocation = errors.New("smarttable: page has no location")
)

// StatusError reports a partial update answered with a status other than 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("smarttable: fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Window is the browsing context the controller runs in.
type Window interface {
	Page() *dom.Page
	// Navigate performs a full navigation to target.
	Navigate(ctx context.Context, target string) error
}

// Fetcher performs the GET requests of partial updates.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*browser.Response, error)
}

// Controller is the table sync controller. It holds no table state of its
// own: everything is read from the page and its URL when an event fires.
type Controller struct {
	cfg     Config
	win     Window
	fetcher Fetcher
	logger  *zap.Logger
	ctx     context.Context

	inflight sync.WaitGroup

	// serializes region swaps with the attach that follows them
	swapMu sync.Mutex

	mu       sync.Mutex
	bindings map[*html.Node]*Binding
	readyGen uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for diagnostics. The default discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContext sets the context that event-triggered work runs under.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// New returns a controller for win. Nothing is wired until Init or Attach
// is called.
func New(win Window, fetcher Fetcher, cfg Config, opts ...Option) (*Controller, error) {
	if win == nil {
		return nil, errors.New("smarttable: nil window")
	}
	if fetcher == nil {
		return nil, errors.New("smarttable: nil fetcher")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:      cfg,
		win:      win,
		fetcher:  fetcher,
		logger:   zap.NewNop(),
		ctx:      context.Background(),
		bindings: make(map[*html.Node]*Binding),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("smarttable")
	return c, nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config { return c.cfg }

func (c *Controller) page() *dom.Page { return c.win.Page() }

// MergeParams merges changes into the page URL and returns the target.
func (c *Controller) MergeParams(changes *query.Changes) (string, error) {
	loc := c.page().Location()
	if loc == nil {
		return "", ErrNoLocation
	}
	return query.Merge(loc, changes), nil
}

// spawn runs fn on its own goroutine so the listener that triggered it
// returns at once. Overlapping runs are allowed and never cancelled.
func (c *Controller) spawn(fn func(ctx context.Context)) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn(c.ctx)
	}()
}

// Wait blocks until every update triggered by an event has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
