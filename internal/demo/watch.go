package demo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the catalog whenever its CSV file is written, created or
// renamed into place. It blocks until ctx is done. The parent directory is
// watched so editors that replace the file atomically are picked up.
// onReload, when set, is called after every reload attempt.
func (c *Catalog) Watch(ctx context.Context, logger *zap.Logger, onReload func(error)) error {
	if c.path == "" {
		return fmt.Errorf("catalog has no backing file")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("catalog")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(c.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.path, err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			err := c.Reload()
			if err != nil {
				logger.Warn("reload failed", zap.String("path", c.path), zap.Error(err))
			} else {
				logger.Info("catalog reloaded", zap.String("path", c.path), zap.Int("recipes", c.Len()))
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}
