package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/pkg/logger"
)

// ErrNoRules is returned by Rules before anything was loaded.
var ErrNoRules = errors.New("no rules loaded")

// Registry holds the active rule set. Readers never block; a reload swaps
// the whole set.
type Registry struct {
	center  Center
	current atomic.Pointer[rule.RuleSet]
	version atomic.Uint64
}

func NewRegistry(center Center) *Registry {
	return &Registry{center: center}
}

// NewStaticRegistry serves a fixed rule set.
func NewStaticRegistry(rs *rule.RuleSet) *Registry {
	r := &Registry{}
	r.Set(rs)
	return r
}

// Rules returns the active rule set.
func (r *Registry) Rules() (*rule.RuleSet, error) {
	rs := r.current.Load()
	if rs == nil {
		return nil, ErrNoRules
	}
	return rs, nil
}

// Version counts the rule sets installed so far.
func (r *Registry) Version() uint64 {
	return r.version.Load()
}

func (r *Registry) Set(rs *rule.RuleSet) {
	r.current.Store(rs)
	r.version.Add(1)
}

// Refresh loads the rule set from the center.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.center == nil {
		return nil
	}
	rs, err := r.center.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	r.Set(rs)
	return nil
}

// Run loads the rules and follows changes until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	if r.center == nil {
		<-ctx.Done()
		return nil
	}
	return r.center.Watch(ctx, func(rs *rule.RuleSet) {
		r.Set(rs)
		logger.Debug("rule set installed", "version", r.Version())
	})
}
