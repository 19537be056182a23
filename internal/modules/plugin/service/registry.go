package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

// Entry is one registry slot. Failed candidates have no facade and no module.
type Entry struct {
	Candidate domain.Candidate
	Device    *TrackingDevice
	Service   *ServiceEndpoint
	module    pluginout.Module
}

func (e Entry) ID() string   { return e.Candidate.ID() }
func (e Entry) Loaded() bool { return e.Candidate.Loaded() }

// BuildEntries turns discovery results into registry entries and wraps every
// loaded contract in its facade. A guid that was already loaded during the
// same scan is recorded as a duplicate and its module is closed.
func BuildEntries(discovered []Discovered, opts FacadeOptions) []Entry {
	opts = opts.withDefaults()
	seen := make(map[string]struct{}, len(discovered))
	entries := make([]Entry, 0, len(discovered))
	for _, item := range discovered {
		candidate := item.Candidate
		if !candidate.Loaded() {
			entries = append(entries, Entry{Candidate: candidate})
			continue
		}
		if _, dup := seen[candidate.GUID]; dup {
			if item.Module != nil {
				_ = item.Module.Close()
			}
			candidate.Outcome = domain.OutcomeDuplicateGUID
			candidate.Severity = domain.SeverityError
			candidate.Error = fmt.Sprintf("guid %s is already provided by another plugin", candidate.GUID)
			opts.Metrics.DiscoveryAttempts.WithLabelValues(string(candidate.Kind), string(candidate.Outcome)).Inc()
			opts.Logger.Error("duplicate plugin guid", "guid", candidate.GUID, "path", candidate.Path)
			entries = append(entries, Entry{Candidate: candidate})
			continue
		}
		seen[candidate.GUID] = struct{}{}
		entry := Entry{Candidate: candidate, module: item.Module}
		switch candidate.Kind {
		case domain.KindDevice:
			entry.Device = NewTrackingDevice(candidate, item.Device, opts)
		case domain.KindService:
			entry.Service = NewServiceEndpoint(candidate, item.Service, opts)
		}
		entries = append(entries, entry)
	}
	return entries
}

// Registry holds the entries of the latest scan.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Replace swaps in a new scan result and returns the previous entries so the
// caller can shut them down.
func (r *Registry) Replace(entries []Entry) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.entries
	r.entries = entries
	return old
}

func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Providers() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]domain.Provider, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.Candidate.Kind == domain.KindUnknown {
			continue
		}
		providers = append(providers, domain.Provider{
			ID:     entry.ID(),
			Kind:   entry.Candidate.Kind,
			Loaded: entry.Loaded(),
		})
	}
	return providers
}

func (r *Registry) Find(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.ID() == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// closeEntries shuts every facade down and then releases every module.
func closeEntries(ctx context.Context, entries []Entry, logger hclog.Logger) {
	for _, entry := range entries {
		switch {
		case entry.Device != nil:
			if err := entry.Device.Shutdown(ctx); err != nil {
				logger.Warn("device shutdown failed", "guid", entry.ID(), "error", err)
			}
		case entry.Service != nil:
			if err := entry.Service.Shutdown(ctx); err != nil {
				logger.Warn("service shutdown failed", "guid", entry.ID(), "error", err)
			}
		}
	}
	for _, entry := range entries {
		if entry.module == nil {
			continue
		}
		if err := entry.module.Close(); err != nil {
			logger.Warn("close plugin module", "path", entry.Candidate.Path, "error", err)
		}
	}
}
