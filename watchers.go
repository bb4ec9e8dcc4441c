package smarttable

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/poku-e/smarttable/dom"
)

// Binding is the set of listeners Attach registered for one scope.
type Binding struct {
	scope *html.Node

	mu   sync.Mutex
	subs []dom.Subscription
}

// Scope returns the node the binding was created for.
func (b *Binding) Scope() *html.Node { return b.scope }

// Len returns the number of listeners registered.
func (b *Binding) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Detach unregisters every listener of the binding.
func (b *Binding) Detach() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, s := range subs {
		s.Detach()
	}
}

func (b *Binding) add(s dom.Subscription) {
	if !s.Active() {
		return
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
}

// Attach wires the search field, the extra filters and the remote links
// found within scope. A binding previously created for the same scope node
// is detached first, so attaching twice never doubles the listeners.
func (c *Controller) Attach(scope *html.Node) *Binding {
	b := &Binding{scope: scope}
	if scope == nil {
		return b
	}

	c.mu.Lock()
	if old := c.bindings[scope]; old != nil {
		old.Detach()
	}
	c.bindings[scope] = b
	c.mu.Unlock()

	page := c.page()
	c.attachSearch(page, scope, b)
	c.attachFilters(page, scope, b)
	c.attachRemoteLinks(page, scope, b)

	c.logger.Debug("scope attached",
		zap.String("scope", scope.Data),
		zap.Int("listeners", b.Len()))
	return b
}

func (c *Controller) attachSearch(page *dom.Page, scope *html.Node, b *Binding) {
	if c.cfg.SearchSelector == "" {
		return
	}
	search := page.FirstIn(scope, c.cfg.SearchSelector)
	if search == nil {
		return
	}
	b.add(page.Listen(search, dom.EventChange, func(ev *dom.Event) {
		value := page.Value(ev.Target)
		c.spawn(func(ctx context.Context) {
			c.refreshFromListener(ctx, c.cfg.Keys.Search, value)
		})
	}))
}

func (c *Controller) attachFilters(page *dom.Page, scope *html.Node, b *Binding) {
	if c.cfg.FiltersSelector == "" {
		return
	}
	filters := page.FirstIn(scope, c.cfg.FiltersSelector)
	if filters == nil {
		return
	}
	for _, control := range page.FindIn(filters, "input, select") {
		b.add(page.Listen(control, dom.EventChange, c.onFilterChange))
	}
}

// onFilterChange turns a filter control's state into a refresh. Unchecked
// boxes and empty values remove the parameter; control types other than
// checkbox, radio, text, search and single select are ignored.
func (c *Controller) onFilterChange(ev *dom.Event) {
	page := c.page()
	control := ev.Target
	name := page.Name(control)
	if name == "" {
		c.logger.Debug("ignoring filter without name")
		return
	}

	var value string
	switch page.ControlType(control) {
	case dom.TypeCheckbox, dom.TypeRadio:
		if page.Checked(control) {
			value = page.Value(control)
		}
	case dom.TypeText, dom.TypeSearch, dom.TypeSelectOne:
		value = page.Value(control)
	default:
		return
	}

	c.spawn(func(ctx context.Context) {
		c.refreshFromListener(ctx, name, value)
	})
}

func (c *Controller) attachRemoteLinks(page *dom.Page, scope *html.Node, b *Binding) {
	if c.cfg.RemoteLinkSelector == "" {
		return
	}
	for _, link := range page.FindIn(scope, c.cfg.RemoteLinkSelector) {
		b.add(page.Listen(link, dom.EventClick, func(ev *dom.Event) {
			ev.PreventDefault()
			href, ok := page.Attr(ev.Target, "href")
			if !ok {
				return
			}
			target, err := page.Resolve(href)
			if err != nil {
				c.logger.Warn("bad remote link", zap.String("href", href), zap.Error(err))
				return
			}
			c.spawn(func(ctx context.Context) {
				if err := c.FetchAndReplace(ctx, target.String(), c.cfg.RegionSelector); err != nil {
					c.logger.Warn("remote link update failed",
						zap.String("url", target.String()), zap.Error(err))
				}
			})
		}))
	}
}

func (c *Controller) refreshFromListener(ctx context.Context, key, value string) {
	if err := c.Refresh(ctx, key, value); err != nil {
		c.logger.Warn("refresh failed", zap.String("key", key), zap.Error(err))
	}
}

// forget drops the recorded binding of scope.
func (c *Controller) forget(scope *html.Node) {
	c.mu.Lock()
	delete(c.bindings, scope)
	c.mu.Unlock()
}

// forgetDetached drops bindings whose scope left the document.
func (c *Controller) forgetDetached(page *dom.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for scope := range c.bindings {
		if !page.Contains(scope) {
			delete(c.bindings, scope)
		}
	}
}
