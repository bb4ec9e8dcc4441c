package smarttable

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/poku-e/smarttable/query"
)

// Refresh applies key=value to the page URL, always resetting the page
// number to the first page. An empty value removes key. When the document
// has a replaceable region the target is fetched and swapped in; otherwise
// the window performs a full navigation.
func (c *Controller) Refresh(ctx context.Context, key, value string) error {
	changes := query.NewChanges().
		Set(c.cfg.Keys.Page, c.cfg.FirstPage).
		SetOrRemove(key, value)

	target, err := c.MergeParams(changes)
	if err != nil {
		return err
	}

	if c.page().First(c.cfg.RegionSelector) != nil {
		return c.FetchAndReplace(ctx, target, c.cfg.RegionSelector)
	}

	c.logger.Debug("full navigation", zap.String("url", target))
	if err := c.win.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	return nil
}
