package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/modules/plugin/dto"
	pluginout "trackhost/internal/modules/plugin/port/out"
	apperrors "trackhost/internal/platform/errors"
	"trackhost/internal/platform/metrics"
	"trackhost/internal/platform/tx"
)

// Governor owns the persisted disabled set and keeps at least one loaded
// provider of each kind enabled.
type Governor struct {
	store    pluginout.EnablementStore
	tx       tx.Manager
	registry *Registry
	policy   domain.FallbackPolicy
	logger   hclog.Logger
	metrics  *metrics.Metrics

	mu          sync.RWMutex
	disabled    domain.DisabledSet
	subscribers map[int]chan dto.EnablementChange
	nextSub     int
}

func NewGovernor(store pluginout.EnablementStore, txm tx.Manager, registry *Registry, policy domain.FallbackPolicy, logger hclog.Logger, m *metrics.Metrics) *Governor {
	if txm == nil {
		txm = tx.NoopManager{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Governor{
		store:       store,
		tx:          txm,
		registry:    registry,
		policy:      policy,
		logger:      logger.Named("governor"),
		metrics:     m,
		disabled:    domain.NewDisabledSet(),
		subscribers: map[int]chan dto.EnablementChange{},
	}
}

// Load reads the persisted disabled set.
func (g *Governor) Load(ctx context.Context) error {
	disabled, err := g.store.LoadDisabled(ctx)
	if err != nil {
		return fmt.Errorf("load disabled plugins: %w", err)
	}
	g.mu.Lock()
	g.disabled = disabled
	g.mu.Unlock()
	return nil
}

func (g *Governor) IsEnabled(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.disabled.Has(id)
}

func (g *Governor) Disabled() domain.DisabledSet {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.disabled.Clone()
}

// SetEnabled applies one toggle request. A refused disable still persists
// the unchanged set and notifies subscribers with Reverted set.
func (g *Governor) SetEnabled(ctx context.Context, id string, enabled bool) (dto.ToggleResult, error) {
	var result dto.ToggleResult
	err := g.tx.Within(ctx, func(ctx context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()

		providers := g.registry.Providers()
		decision, err := domain.DecideToggle(g.disabled, providers, id, enabled)
		if err != nil {
			return fmt.Errorf("%w: plugin %s", apperrors.ErrNotFound, id)
		}
		kind := kindOf(providers, id)
		result = dto.ToggleResult{
			ID:        id,
			Kind:      string(kind),
			Requested: enabled,
			Enabled:   decision.Enabled,
			Reverted:  decision.Reverted,
		}
		if decision.NoOp {
			return nil
		}
		if err := g.store.SaveDisabled(ctx, decision.Disabled); err != nil {
			return fmt.Errorf("save disabled plugins: %w", err)
		}
		g.disabled = decision.Disabled
		if decision.Reverted {
			g.metrics.EnablementReverts.WithLabelValues(string(kind)).Inc()
			g.logger.Warn("refused to disable the last enabled provider", "id", id, "kind", kind)
		} else {
			g.logger.Info("plugin enablement changed", "id", id, "enabled", decision.Enabled)
		}
		g.publishLocked(dto.EnablementChange{ID: id, Kind: string(kind), Enabled: decision.Enabled, Reverted: decision.Reverted})
		return nil
	})
	return result, err
}

// Reconcile restores an enabled provider for every kind left without one
// after a rescan and returns the ids it re-enabled.
func (g *Governor) Reconcile(ctx context.Context) ([]string, error) {
	var reenabled []string
	err := g.tx.Within(ctx, func(ctx context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()

		providers := g.registry.Providers()
		next, ids := domain.Reconcile(g.disabled, providers, g.policy)
		if len(ids) == 0 {
			return nil
		}
		if err := g.store.SaveDisabled(ctx, next); err != nil {
			return fmt.Errorf("save disabled plugins: %w", err)
		}
		g.disabled = next
		for _, id := range ids {
			kind := kindOf(providers, id)
			g.logger.Warn("re-enabled provider so its kind is not left empty", "id", id, "kind", kind)
			g.publishLocked(dto.EnablementChange{ID: id, Kind: string(kind), Enabled: true})
		}
		reenabled = ids
		return nil
	})
	return reenabled, err
}

// Subscribe returns a buffered channel of enablement changes. Slow readers
// miss changes instead of blocking the governor.
func (g *Governor) Subscribe() (<-chan dto.EnablementChange, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	ch := make(chan dto.EnablementChange, 16)
	g.subscribers[id] = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subscribers, id)
			g.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (g *Governor) publishLocked(change dto.EnablementChange) {
	for _, ch := range g.subscribers {
		select {
		case ch <- change:
		default:
			g.logger.Debug("dropped enablement change for slow subscriber", "id", change.ID)
		}
	}
}

func kindOf(providers []domain.Provider, id string) domain.Kind {
	for _, p := range providers {
		if p.ID == id {
			return p.Kind
		}
	}
	return domain.KindUnknown
}
