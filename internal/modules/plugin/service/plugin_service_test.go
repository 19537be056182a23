package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/modules/plugin/service"
	"trackhost/internal/platform/clock"
	apperrors "trackhost/internal/platform/errors"
	"trackhost/internal/platform/id"
	"trackhost/internal/platform/tx"
)

type serviceFixture struct {
	svc     *service.PluginService
	loader  *fakeLoader
	device  *fakeModule
	service *fakeModule
}

func newPluginServiceFixture(t *testing.T, withService bool) serviceFixture {
	t.Helper()
	return newPluginServiceFixtureWithStore(t, withService, &memoryEnablementStore{})
}

func newPluginServiceFixtureWithStore(t *testing.T, withService bool, store *memoryEnablementStore) serviceFixture {
	t.Helper()
	root := t.TempDir()
	device := &fakeModule{meta: deviceMeta("vendor.device"), device: &fakeDevice{
		status: domain.Status{Code: domain.StatusOK, Message: "tracking"},
		state:  domain.DeviceState{Initialized: true, Joints: skeleton()},
	}}
	svc := &fakeModule{meta: serviceMeta("vendor.service"), service: &fakeService{
		status: domain.Status{Code: domain.StatusOK, Message: "connected"},
	}}
	modules := map[string]*fakeModule{"plugin_device": device}
	touch(t, filepath.Join(root, "device"), "plugin_device")
	touch(t, filepath.Join(root, "broken"), "plugin_broken")
	if withService {
		modules["plugin_service"] = svc
		touch(t, filepath.Join(root, "service"), "plugin_service")
	}
	loader := &fakeLoader{modules: modules}

	registry := service.NewRegistry()
	governor := service.NewGovernor(store, &tx.LockManager{}, registry, nil, nil, nil)
	require.NoError(t, governor.Load(context.Background()))
	discoverer := newDiscoverer(loader, service.DiscoveryOptions{})
	driver := service.NewDriver(registry, governor, service.DriverOptions{TickInterval: 5 * time.Millisecond}, nil, nil)
	plugins := service.NewPluginService(discoverer, registry, governor, driver, &id.Sequence{Prefix: "scan-"},
		clock.Fixed{At: discoveredAt}, service.Options{Roots: []string{root}}, nil)
	return serviceFixture{svc: plugins, loader: loader, device: device, service: svc}
}

func TestRescanReportsEveryCandidate(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, true)

	report, err := f.svc.Rescan(context.Background())
	require.NoError(t, err)
	require.Equal(t, "scan-1", report.ScanID)
	require.Len(t, report.Plugins, 3)

	byOutcome := map[string]int{}
	for _, info := range report.Plugins {
		byOutcome[info.Outcome]++
		if info.Loaded {
			require.True(t, info.Enabled)
		}
	}
	require.Equal(t, 2, byOutcome[string(domain.OutcomeNoError)])
	require.Equal(t, 1, byOutcome[string(domain.OutcomeFileSystemError)])
}

func TestRescanShutsDownPreviousGeneration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newPluginServiceFixture(t, true)

	_, err := f.svc.TestService(ctx)
	require.NoError(t, err)
	_, err = f.svc.Rescan(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, f.service.service.count("shutdown"))
	require.Equal(t, 1, f.service.Closed())
	require.Equal(t, 1, f.device.Closed())
	require.Equal(t, 1, f.device.device.count("shutdown"))

	// The new generation starts over from discovery.
	_, err = f.svc.TestService(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, f.service.service.count("on_load"))
}

func TestRescanRejectsConcurrentScan(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, false)
	f.loader.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Rescan(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return len(f.loader.Loaded()) > 0 }, time.Second, time.Millisecond)

	_, err := f.svc.Rescan(context.Background())
	require.ErrorIs(t, err, apperrors.ErrScanInProgress)

	close(f.loader.gate)
	require.NoError(t, <-done)
}

func TestFirstUseWaitsForScanInFlight(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, false)
	f.loader.gate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listed := make(chan error, 1)
	go func() {
		_, err := f.svc.List(ctx)
		listed <- err
	}()
	require.Eventually(t, func() bool { return len(f.loader.Loaded()) > 0 }, time.Second, time.Millisecond)

	ran := make(chan error, 1)
	go func() { ran <- f.svc.Run(ctx) }()
	close(f.loader.gate)

	require.NoError(t, <-listed)
	require.Eventually(t, func() bool { return len(f.svc.AppJointPoses(ctx)) > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-ran)
	// One scan served both callers: each plugin file was loaded once.
	require.Len(t, f.loader.Loaded(), 2)
}

func TestFailedFirstScanIsRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memoryEnablementStore{disabled: domain.NewDisabledSet("vendor.device"), saveErr: errors.New("disk full")}
	f := newPluginServiceFixtureWithStore(t, false, store)

	_, err := f.svc.List(ctx)
	require.ErrorContains(t, err, "disk full")

	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()

	plugins, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	require.Len(t, f.loader.Loaded(), 4)
	require.Equal(t, 1, store.Saves())
}

func TestSetEnabledKeepsLastDevice(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, true)

	result, err := f.svc.SetEnabled(context.Background(), "vendor.device", false)
	require.NoError(t, err)
	require.True(t, result.Reverted)
	require.True(t, result.Enabled)
	require.Equal(t, string(domain.KindDevice), result.Kind)

	_, err = f.svc.SetEnabled(context.Background(), "", false)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDoctorPollsLoadedPlugins(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, true)

	results, err := f.svc.Doctor(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, result := range results {
		switch result.ID {
		case "vendor.device":
			require.Equal(t, "tracking", result.StatusMessage)
		case "vendor.service":
			require.Equal(t, "connected", result.StatusMessage)
			require.Equal(t, []string{"waist", "left_foot", "right_foot"}, result.SupportedTrackers)
		default:
			require.Equal(t, string(domain.OutcomeFileSystemError), result.Outcome)
			require.False(t, result.Enabled)
		}
	}
}

func TestTestServiceWithoutService(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, false)

	_, err := f.svc.TestService(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoActiveService)
}

func TestRunDrivesPluginsAndClosesOnExit(t *testing.T) {
	t.Parallel()
	f := newPluginServiceFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()
	require.Eventually(t, func() bool { return len(f.svc.AppJointPoses(ctx)) > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 1, f.device.device.count("shutdown"))
	require.Equal(t, 1, f.service.service.count("shutdown"))
	require.Equal(t, 1, f.device.Closed())
	require.NotEmpty(t, f.service.service.Received())

	poses := f.svc.AppJointPoses(context.Background())
	require.Equal(t, "waist", poses[0].Name)
	require.True(t, poses[0].Tracked)
	require.Equal(t, [4]float64{1, 0, 0, 0}, poses[0].Orientation)
}
