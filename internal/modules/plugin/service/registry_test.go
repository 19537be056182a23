package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/modules/plugin/service"
)

func TestBuildEntriesRejectsDuplicateGUID(t *testing.T) {
	t.Parallel()
	first := &fakeModule{meta: deviceMeta("vendor.device"), device: &fakeDevice{}}
	second := &fakeModule{meta: deviceMeta("vendor.device"), device: &fakeDevice{}}
	failed := domain.Candidate{Name: "plugin_bad", Path: "/plugins/plugin_bad", Outcome: domain.OutcomeFileSystemError}

	entries := service.BuildEntries([]service.Discovered{
		{Candidate: loadedCandidate("vendor.device", domain.KindDevice), Module: first, Device: first.device},
		{Candidate: failed},
		{Candidate: loadedCandidate("vendor.device", domain.KindDevice), Module: second, Device: second.device},
	}, service.FacadeOptions{})

	require.Len(t, entries, 3)
	require.NotNil(t, entries[0].Device)
	require.Nil(t, entries[1].Device)
	require.Equal(t, "/plugins/plugin_bad", entries[1].ID())
	require.Equal(t, domain.OutcomeDuplicateGUID, entries[2].Candidate.Outcome)
	require.Nil(t, entries[2].Device)
	require.Zero(t, first.Closed())
	require.Equal(t, 1, second.Closed())
}

func TestRegistryProvidersSkipUnknownKind(t *testing.T) {
	t.Parallel()
	registry := registryOf(
		loadedCandidate("svc", domain.KindService),
		domain.Candidate{Path: "/plugins/plugin_x", Kind: domain.KindUnknown, Outcome: domain.OutcomeFileSystemError},
		domain.Candidate{GUID: "dev", Kind: domain.KindDevice, Outcome: domain.OutcomeUnsupportedAPIVersion},
	)

	require.Equal(t, []domain.Provider{
		{ID: "svc", Kind: domain.KindService, Loaded: true},
		{ID: "dev", Kind: domain.KindDevice, Loaded: false},
	}, registry.Providers())

	entry, ok := registry.Find("/plugins/plugin_x")
	require.True(t, ok)
	require.False(t, entry.Loaded())
	_, ok = registry.Find("missing")
	require.False(t, ok)
}
