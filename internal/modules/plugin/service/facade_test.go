package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/modules/plugin/service"
)

func newDevice(t *testing.T, fake *fakeDevice, opts service.FacadeOptions) *service.TrackingDevice {
	t.Helper()
	candidate := domain.Candidate{GUID: "test.device", Name: "Test Device", Kind: domain.KindDevice, Outcome: domain.OutcomeNoError}
	return service.NewTrackingDevice(candidate, fake, opts)
}

func newService(t *testing.T, fake *fakeService, opts service.FacadeOptions) *service.ServiceEndpoint {
	t.Helper()
	candidate := domain.Candidate{GUID: "test.service", Name: "Test Service", Kind: domain.KindService, Outcome: domain.OutcomeNoError}
	return service.NewServiceEndpoint(candidate, fake, opts)
}

func startDevice(t *testing.T, device *service.TrackingDevice) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, device.OnLoad(ctx))
	require.NoError(t, device.Initialize(ctx))
}

func startService(t *testing.T, endpoint *service.ServiceEndpoint) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, endpoint.OnLoad(ctx))
	require.NoError(t, endpoint.Initialize(ctx))
}

func TestDeviceLifecycleForwardsShutdownOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeDevice{}
	device := newDevice(t, fake, service.FacadeOptions{})

	startDevice(t, device)
	require.NoError(t, device.Update(ctx))
	require.NoError(t, device.Shutdown(ctx))
	require.NoError(t, device.Shutdown(ctx))

	require.ErrorIs(t, device.Update(ctx), domain.ErrFacadeShutDown)
	require.ErrorIs(t, device.SignalJoint(ctx, 0), domain.ErrFacadeShutDown)
	require.Equal(t, []string{"on_load", "initialize", "update", "shutdown"}, fake.Calls())
	require.Equal(t, domain.StateShutDown, device.State())
}

func TestDeviceRejectsOutOfOrderCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeDevice{}
	device := newDevice(t, fake, service.FacadeOptions{})

	require.ErrorIs(t, device.Update(ctx), domain.ErrLifecycleOrder)
	require.ErrorIs(t, device.Initialize(ctx), domain.ErrLifecycleOrder)
	require.ErrorIs(t, device.SignalJoint(ctx, 1), domain.ErrLifecycleOrder)
	require.ErrorIs(t, device.SignalJoint(ctx, -1), domain.ErrInvalidJointIndex)

	// A facade that never loaded does not forward shutdown.
	require.NoError(t, device.Shutdown(ctx))
	require.Empty(t, fake.Calls())
}

func TestDevicePanicDegradesStatusUntilNextSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeDevice{status: domain.Status{Code: domain.StatusOK, Message: "running"}}
	device := newDevice(t, fake, service.FacadeOptions{})
	startDevice(t, device)

	fake.setPanic("update", true)
	fake.setPanic("status", true)
	require.ErrorIs(t, device.Update(ctx), domain.ErrPluginPanic)
	status := device.Status(ctx)
	require.Equal(t, domain.StatusHostFault, status.Code)
	require.NotEmpty(t, status.Message)

	fake.setPanic("update", false)
	fake.setPanic("status", false)
	require.NoError(t, device.Update(ctx))
	require.Equal(t, domain.Status{Code: domain.StatusOK, Message: "running"}, device.Status(ctx))
}

func TestStatusPollsPastEarlierFault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeDevice{status: domain.Status{Code: domain.StatusOK, Message: "running"}}
	device := newDevice(t, fake, service.FacadeOptions{})
	startDevice(t, device)

	fake.setFail("update", errors.New("usb unplugged"))
	require.Error(t, device.Update(ctx))

	// No further update is issued; the status read alone reflects the plugin.
	require.Equal(t, domain.Status{Code: domain.StatusOK, Message: "running"}, device.Status(ctx))
	require.Equal(t, 1, fake.count("status"))

	fake.setFail("status", errors.New("gone"))
	status := device.Status(ctx)
	require.Equal(t, domain.StatusHostFault, status.Code)
	require.Contains(t, status.Message, "gone")
}

func TestDeviceCallTimeoutBecomesFault(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fake := &fakeDevice{}
	fake.setHang("status", release)
	device := newDevice(t, fake, service.FacadeOptions{CallTimeout: 20 * time.Millisecond})

	started := time.Now()
	status := device.Status(context.Background())
	require.Equal(t, domain.StatusHostFault, status.Code)
	require.Less(t, time.Since(started), time.Second)
}

func TestDeviceAppOrientationUsesOneSnapshot(t *testing.T) {
	t.Parallel()
	joints := make([]domain.TrackedJoint, 0, len(domain.OrientationJoints))
	for _, role := range domain.OrientationJoints {
		joints = append(joints, domain.TrackedJoint{Name: string(role), Role: role})
	}
	fake := &fakeDevice{state: domain.DeviceState{
		Flags:  domain.DeviceFlags{AppOrientationDeclared: true},
		Joints: joints,
	}}
	device := newDevice(t, fake, service.FacadeOptions{})

	require.True(t, device.IsAppOrientationSupported(context.Background()))
	require.Equal(t, 1, fake.count("state"))

	fake.state.Joints = joints[1:]
	require.False(t, device.IsAppOrientationSupported(context.Background()))
}

func TestServiceTrackerResultsMatchInputs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{reply: func(in []domain.Tracker) []domain.TrackerResult {
		return []domain.TrackerResult{
			{Tracker: domain.Tracker{Serial: "stranger"}, Success: true},
			{Tracker: in[1], Success: true},
		}
	}}
	endpoint := newService(t, fake, service.FacadeOptions{})
	startService(t, endpoint)

	trackers := []domain.Tracker{
		{Serial: "waist", Role: domain.TrackerWaist},
		{Serial: "left", Role: domain.TrackerLeftFoot},
		{Serial: "right", Role: domain.TrackerRightFoot},
	}
	results := endpoint.UpdateTrackerPoses(ctx, trackers, true)

	require.Len(t, results, len(trackers))
	for i, result := range results {
		require.Equal(t, trackers[i].Serial, result.Tracker.Serial)
	}
	require.Equal(t, []bool{false, true, false}, []bool{results[0].Success, results[1].Success, results[2].Success})
}

func TestServiceTrackerFailureFailsEveryTracker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{}
	fake.setFail("set_tracker_states", errors.New("driver offline"))
	endpoint := newService(t, fake, service.FacadeOptions{})
	startService(t, endpoint)

	trackers := []domain.Tracker{{Serial: "a"}, {Serial: "b"}}
	results := endpoint.SetTrackerStates(ctx, trackers, true)
	require.Len(t, results, 2)
	for _, result := range results {
		require.False(t, result.Success)
	}
	fake.setFail("status", errors.New("driver offline"))
	require.Equal(t, domain.StatusHostFault, endpoint.Status(ctx).Code)
}

func TestServiceShutdownWaitsForBackgroundCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{}
	endpoint := newService(t, fake, service.FacadeOptions{})
	startService(t, endpoint)

	require.Nil(t, endpoint.UpdateTrackerPoses(ctx, []domain.Tracker{{Serial: "a"}}, false))
	require.NoError(t, endpoint.Shutdown(ctx))

	calls := fake.Calls()
	require.Equal(t, "shutdown", calls[len(calls)-1])
	require.Equal(t, 1, fake.count("update_tracker_poses"))

	results := endpoint.UpdateTrackerPoses(ctx, []domain.Tracker{{Serial: "a"}, {Serial: "b"}}, true)
	require.Len(t, results, 2)
	require.False(t, results[0].Success)
	require.Nil(t, endpoint.SetTrackerStates(ctx, []domain.Tracker{{Serial: "a"}}, false))
	require.Equal(t, 1, fake.count("update_tracker_poses"))
	require.False(t, endpoint.RequestServiceRestart(ctx, "tracker set changed", true))
}

func TestServiceSupportedTrackersFallBackToMandatory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{settings: domain.ServiceSettings{AdditionalTrackers: []domain.TrackerType{domain.TrackerHead, domain.TrackerWaist}}}
	endpoint := newService(t, fake, service.FacadeOptions{})

	require.Equal(t,
		[]domain.TrackerType{domain.TrackerWaist, domain.TrackerLeftFoot, domain.TrackerRightFoot, domain.TrackerHead},
		endpoint.SupportedTrackerTypes(ctx))

	fake.setFail("settings", errors.New("unavailable"))
	require.Equal(t, domain.MandatoryTrackers, endpoint.SupportedTrackerTypes(ctx))
}

func TestServiceTestConnectionReportsFault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{status: domain.Status{Code: domain.StatusOK, Message: "connected"}}
	endpoint := newService(t, fake, service.FacadeOptions{})

	result := endpoint.TestConnection(ctx)
	require.True(t, result.Status.OK())
	require.Equal(t, "fake", result.Detail)

	fake.setPanic("test_connection", true)
	result = endpoint.TestConnection(ctx)
	require.Equal(t, domain.StatusHostFault, result.Status.Code)
}

func TestServiceRestartRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := &fakeService{}
	endpoint := newService(t, fake, service.FacadeOptions{})
	startService(t, endpoint)

	require.True(t, endpoint.RequestServiceRestart(ctx, "new trackers", true))
	require.False(t, endpoint.RequestServiceRestart(ctx, "new trackers", false))
	require.NoError(t, endpoint.Shutdown(ctx))
	require.Equal(t, 2, fake.count("request_service_restart"))
}
