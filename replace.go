package smarttable

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poku-e/smarttable/dom"
)

// UpdateDetail is the payload of the update event.
type UpdateDetail struct {
	ReplacedElementSelector string `json:"replacedElementSelector"`
}

// FetchAndReplace GETs target and swaps the first element matching
// regionSelector in the live document for its counterpart in the response.
//
// Nothing is touched unless the fetch answers 200, the target resolves and
// both documents hold the region. On success the region is replaced, the
// location is rewritten in place, the new region is attached and the update
// event is fired on the document, in that order. Concurrent calls are not
// ordered: the last one to complete wins, and its region and location are
// the ones left on the page.
func (c *Controller) FetchAndReplace(ctx context.Context, target, regionSelector string) (err error) {
	log := c.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("url", target),
		zap.String("region", regionSelector))
	defer func() {
		if err != nil {
			log.Debug("region not replaced", zap.Error(err))
		}
	}()

	resp, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	if !resp.OK() {
		return &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	// parsing builds a tree only; scripts in the body never run
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("parse response of %s: %w", target, err)
	}
	fresh := doc.Find(regionSelector).First()
	if fresh.Length() == 0 {
		return fmt.Errorf("response of %s: %w", target, ErrRegionNotFound)
	}

	page := c.page()
	loc, err := page.Resolve(target)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}

	node := fresh.Nodes[0]
	c.swapMu.Lock()
	live, err := page.ReplaceFirst(regionSelector, node, loc)
	if err != nil {
		c.swapMu.Unlock()
		if errors.Is(err, dom.ErrNoMatch) {
			return fmt.Errorf("live document: %w", ErrRegionNotFound)
		}
		return fmt.Errorf("replace region: %w", err)
	}
	c.forget(live)
	c.Attach(node)
	c.swapMu.Unlock()

	page.DispatchDocument(dom.NewCustomEvent(c.cfg.UpdateEvent, UpdateDetail{
		ReplacedElementSelector: regionSelector,
	}))

	log.Debug("region replaced")
	return nil
}

// OnUpdate registers fn for the update event fired after every partial
// replacement.
func (c *Controller) OnUpdate(fn func(UpdateDetail)) dom.Subscription {
	return c.page().ListenDocument(c.cfg.UpdateEvent, func(ev *dom.Event) {
		if detail, ok := ev.Detail.(UpdateDetail); ok {
			fn(detail)
		}
	})
}
