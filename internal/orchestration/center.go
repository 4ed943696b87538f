// Package orchestration supplies the active rule set and keeps it current.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/pkg/logger"
)

// Center is a source of rule sets.
type Center interface {
	// Load returns the current rule set.
	Load(ctx context.Context) (*rule.RuleSet, error)
	// Watch calls onChange with every new valid rule set until ctx is done.
	Watch(ctx context.Context, onChange func(*rule.RuleSet)) error
}

// FileCenter reads rules from a YAML file.
type FileCenter struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
}

// FileCenterOption configures a FileCenter.
type FileCenterOption func(*FileCenter)

// WithDebounce sets how long to wait for writes to settle. Default is 100ms.
func WithDebounce(d time.Duration) FileCenterOption {
	return func(c *FileCenter) {
		c.debounce = d
	}
}

func WithLogger(l *log.Logger) FileCenterOption {
	return func(c *FileCenter) {
		c.logger = l
	}
}

func NewFileCenter(path string, opts ...FileCenterOption) *FileCenter {
	c := &FileCenter{
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   logger.With("component", "rules"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the watched file.
func (c *FileCenter) Path() string {
	return c.path
}

func (c *FileCenter) Load(ctx context.Context) (*rule.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rule.Load(c.path)
}

// Watch watches the file's directory so editors that replace the file on
// save are still followed. Invalid documents are logged and skipped.
func (c *FileCenter) Watch(ctx context.Context, onChange func(*rule.RuleSet)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	abs, err := filepath.Abs(c.path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", c.path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	c.logger.Debug("watching rules", "path", abs)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		rs, err := rule.Load(abs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			c.logger.Warn("ignoring invalid rules", "path", abs, "err", err)
			return
		}
		c.logger.Info("rules reloaded", "path", abs, "tables", len(rs.Sharding.Tables))
		onChange(rs)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(c.debounce, func() {
				if ctx.Err() == nil {
					reload()
				}
			})
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("watcher error", "err", err)
		}
	}
}
