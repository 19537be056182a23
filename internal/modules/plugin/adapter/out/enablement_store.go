package out

import (
	"context"
	"encoding/json"
	"fmt"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

// DisabledPluginsKey holds the disabled provider ids as a JSON array.
const DisabledPluginsKey = "plugins.disabled"

type SettingsEnablementStore struct {
	settings pluginout.SettingsStore
}

func NewSettingsEnablementStore(settings pluginout.SettingsStore) *SettingsEnablementStore {
	return &SettingsEnablementStore{settings: settings}
}

func (s *SettingsEnablementStore) LoadDisabled(ctx context.Context) (domain.DisabledSet, error) {
	raw, ok, err := s.settings.Get(ctx, DisabledPluginsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return domain.NewDisabledSet(), nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode disabled plugins: %w", err)
	}
	return domain.NewDisabledSet(ids...), nil
}

func (s *SettingsEnablementStore) SaveDisabled(ctx context.Context, disabled domain.DisabledSet) error {
	raw, err := json.Marshal(disabled.Sorted())
	if err != nil {
		return fmt.Errorf("encode disabled plugins: %w", err)
	}
	return s.settings.Set(ctx, DisabledPluginsKey, string(raw))
}
