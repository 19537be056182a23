package domain

import "sort"

// DisabledSet holds the ids of providers the user turned off.
type DisabledSet map[string]struct{}

func NewDisabledSet(ids ...string) DisabledSet {
	set := make(DisabledSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s DisabledSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s DisabledSet) Clone() DisabledSet {
	out := make(DisabledSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s DisabledSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s DisabledSet) Equal(other DisabledSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Provider is the governor's view of one registry entry.
type Provider struct {
	ID     string
	Kind   Kind
	Loaded bool
}

// FallbackPolicy lists preferred provider ids per kind, in order.
type FallbackPolicy map[Kind][]string

// EnabledCount counts loaded providers of kind that are not in disabled.
func EnabledCount(disabled DisabledSet, providers []Provider, kind Kind) int {
	count := 0
	for _, p := range providers {
		if p.Loaded && p.Kind == kind && !disabled.Has(p.ID) {
			count++
		}
	}
	return count
}

type ToggleDecision struct {
	// Disabled is the set to persist.
	Disabled DisabledSet
	// Enabled is the resulting state of the target.
	Enabled  bool
	Reverted bool
	NoOp     bool
}

// DecideToggle applies a requested state to the disabled set. A disable that
// would leave no enabled loaded provider of the target's kind is reverted and
// the original set is returned.
func DecideToggle(disabled DisabledSet, providers []Provider, id string, desired bool) (ToggleDecision, error) {
	target, ok := findProvider(providers, id)
	if !ok {
		return ToggleDecision{}, ErrProviderNotFound
	}
	current := !disabled.Has(id)
	if current == desired {
		return ToggleDecision{Disabled: disabled, Enabled: current, NoOp: true}, nil
	}
	next := disabled.Clone()
	if desired {
		delete(next, id)
		return ToggleDecision{Disabled: next, Enabled: true}, nil
	}
	next[id] = struct{}{}
	if target.Loaded && EnabledCount(next, providers, target.Kind) == 0 {
		return ToggleDecision{Disabled: disabled, Enabled: true, Reverted: true}, nil
	}
	return ToggleDecision{Disabled: next, Enabled: false}, nil
}

// Reconcile re-enables one provider for every kind that has loaded providers
// but none enabled. The first loaded fallback id wins, else the first loaded
// provider in discovery order. It returns the new set and the re-enabled ids.
func Reconcile(disabled DisabledSet, providers []Provider, policy FallbackPolicy) (DisabledSet, []string) {
	next := disabled.Clone()
	var reenabled []string
	for _, kind := range []Kind{KindDevice, KindService} {
		loaded := loadedOfKind(providers, kind)
		if len(loaded) == 0 || EnabledCount(next, providers, kind) > 0 {
			continue
		}
		choice := loaded[0]
		for _, id := range policy[kind] {
			if containsString(loaded, id) {
				choice = id
				break
			}
		}
		delete(next, choice)
		reenabled = append(reenabled, choice)
	}
	return next, reenabled
}

func findProvider(providers []Provider, id string) (Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

func loadedOfKind(providers []Provider, kind Kind) []string {
	var out []string
	for _, p := range providers {
		if p.Loaded && p.Kind == kind {
			out = append(out, p.ID)
		}
	}
	return out
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
