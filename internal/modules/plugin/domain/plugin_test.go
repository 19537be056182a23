package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/plugin/domain"
)

func TestMetadataKindPrefersDevice(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		exports []string
		want    domain.Kind
	}{
		{name: "device only", exports: []string{domain.ContractDevice}, want: domain.KindDevice},
		{name: "service only", exports: []string{domain.ContractService}, want: domain.KindService},
		{name: "both", exports: []string{domain.ContractService, domain.ContractDevice}, want: domain.KindDevice},
		{name: "neither", exports: []string{"vendor.contract.Other"}, want: domain.KindUnknown},
		{name: "prefix is not a match", exports: []string{domain.ContractDevice + "2"}, want: domain.KindUnknown},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, domain.Metadata{Exports: tc.exports}.Kind())
		})
	}
}

func TestIsCompatibleAPIVersion(t *testing.T) {
	t.Parallel()
	require.True(t, domain.IsCompatibleAPIVersion("1.0.0", domain.APIVersion))
	require.True(t, domain.IsCompatibleAPIVersion("v1.7.2-beta.1", domain.APIVersion))
	require.False(t, domain.IsCompatibleAPIVersion("2.0.0", domain.APIVersion))
	require.False(t, domain.IsCompatibleAPIVersion("1.0", domain.APIVersion))
	require.False(t, domain.IsCompatibleAPIVersion("", domain.APIVersion))
}

func TestIsPluginFile(t *testing.T) {
	t.Parallel()
	require.True(t, domain.IsPluginFile("plugin_kinect", "plugin"))
	require.True(t, domain.IsPluginFile("Plugin.Owotrack", "plugin"))
	require.False(t, domain.IsPluginFile("libusb.so", "plugin"))
	require.False(t, domain.IsPluginFile("plugin", ""))
}

func TestOutcomeOfTypedLoadErrors(t *testing.T) {
	t.Parallel()
	outcomes := []domain.LoadOutcome{
		domain.OutcomeDuplicateGUID,
		domain.OutcomeMissingDependency,
		domain.OutcomeUnsupportedAPIVersion,
		domain.OutcomeCompositionRejected,
		domain.OutcomeFileSystemError,
	}
	for _, outcome := range outcomes {
		err := domain.NewLoadError(outcome, "/plugins/x/plugin_x", errors.New("boom"))
		require.Equal(t, outcome, domain.OutcomeOf(err))
		require.Equal(t, outcome, domain.OutcomeOf(fmt.Errorf("load: %w", err)))
	}
	require.Equal(t, domain.OutcomeUnknown, domain.OutcomeOf(errors.New("plain")))
	require.Equal(t, domain.OutcomeNoError, domain.OutcomeOf(nil))
}

func TestCandidateIDFallsBackToPath(t *testing.T) {
	t.Parallel()
	require.Equal(t, "guid", domain.Candidate{GUID: "guid", Path: "/p"}.ID())
	require.Equal(t, "/p", domain.Candidate{Path: "/p"}.ID())
}
