package smarttable

import (
	"go.uber.org/zap"

	"github.com/poku-e/smarttable/dom"
)

// Init wires the controller to the page lifecycle. Every configured ready
// event attaches the whole document; the document is attached at most once
// per load even when several ready events fire for it. If a document is
// already loaded it is attached right away.
//
// Detaching the returned subscriptions stops reacting to future loads.
func (c *Controller) Init() []dom.Subscription {
	page := c.page()
	subs := make([]dom.Subscription, 0, len(c.cfg.ReadyEvents))
	for _, name := range c.cfg.ReadyEvents {
		subs = append(subs, page.ListenDocument(name, func(ev *dom.Event) {
			c.onReady(page, ev.Type)
		}))
	}
	if page.Ready() {
		c.onReady(page, "init")
	}
	return subs
}

func (c *Controller) onReady(page *dom.Page, signal string) {
	gen := page.Generation()

	c.mu.Lock()
	if gen == c.readyGen {
		c.mu.Unlock()
		return
	}
	c.readyGen = gen
	c.mu.Unlock()

	c.forgetDetached(page)
	c.logger.Debug("page ready", zap.String("signal", signal), zap.Uint64("generation", gen))
	c.Attach(page.Root())
}
