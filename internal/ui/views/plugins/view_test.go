package plugins_test

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	plugindto "trackhost/internal/modules/plugin/dto"
	"trackhost/internal/ui/views/plugins"
)

type fakePort struct {
	plugins []plugindto.PluginInfo
	changes chan plugindto.EnablementChange
}

func (f *fakePort) List(context.Context) ([]plugindto.PluginInfo, error) { return f.plugins, nil }

func (f *fakePort) Enable(_ context.Context, id string) (plugindto.ToggleResult, error) {
	return plugindto.ToggleResult{ID: id, Kind: "device", Requested: true, Enabled: true}, nil
}

func (f *fakePort) Disable(_ context.Context, id string) (plugindto.ToggleResult, error) {
	return plugindto.ToggleResult{ID: id, Kind: "device", Enabled: true, Reverted: true}, nil
}

func (f *fakePort) Rescan(context.Context) (plugindto.ScanReport, error) {
	return plugindto.ScanReport{ScanID: "scan-1", Plugins: f.plugins}, nil
}

func (f *fakePort) Doctor(context.Context) ([]plugindto.DoctorResult, error) { return nil, nil }

func (f *fakePort) Subscribe(context.Context) (<-chan plugindto.EnablementChange, func()) {
	return f.changes, func() {}
}

func newFakePort() *fakePort {
	return &fakePort{
		plugins: []plugindto.PluginInfo{
			{ID: "dev.a", Name: "Device A", Kind: "device", Outcome: "no_error", Loaded: true, Enabled: true},
			{ID: "dev.b", Name: "Device B", Kind: "device", Outcome: "missing_dependency"},
		},
		changes: make(chan plugindto.EnablementChange, 1),
	}
}

func TestRevertedToggleReportsLastProvider(t *testing.T) {
	t.Parallel()
	port := newFakePort()
	m := plugins.New(port)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m, _ = m.Update(plugins.ListedMsg{Plugins: port.plugins})

	m, cmd := m.Update(plugins.ToggledMsg{Result: plugindto.ToggleResult{ID: "dev.a", Kind: "device", Enabled: true, Reverted: true}})
	require.Contains(t, m.Status(), "last device provider")
	require.NotNil(t, cmd)

	listed, ok := cmd().(plugins.ListedMsg)
	require.True(t, ok)
	require.Len(t, listed.Plugins, 2)
}

func TestListRendersGovernorState(t *testing.T) {
	t.Parallel()
	port := newFakePort()
	m := plugins.New(port)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m, _ = m.Update(plugins.ListedMsg{Plugins: port.plugins})

	view := m.View()
	require.True(t, strings.Contains(view, "[x] Device A"), view)
	require.True(t, strings.Contains(view, "[!] Device B"), view)
}

func TestEnablementChangeTriggersRelist(t *testing.T) {
	t.Parallel()
	port := newFakePort()
	m := plugins.New(port)
	port.changes <- plugindto.EnablementChange{ID: "dev.a", Kind: "device", Enabled: false}

	m, cmd := m.Update(plugins.ChangedMsg{Change: plugindto.EnablementChange{ID: "dev.a"}})
	require.NotNil(t, cmd)
	_, cmd = m.Update(plugins.ChangedMsg{Closed: true})
	require.Nil(t, cmd)
}
