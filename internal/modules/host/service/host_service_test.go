package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/host/domain"
	"trackhost/internal/modules/host/service"
	apperrors "trackhost/internal/platform/errors"
)

type fakeLocalizer struct {
	tables map[string]map[string]string
	roots  map[string]string
}

func (l *fakeLocalizer) Lookup(_ context.Context, owner, key string) (string, error) {
	value, ok := l.tables[owner][key]
	if !ok {
		return "", domain.ErrStringNotFound
	}
	return value, nil
}

func (l *fakeLocalizer) SetRoot(_ context.Context, owner, path string) error {
	if l.roots == nil {
		l.roots = map[string]string{}
	}
	l.roots[owner] = path
	return nil
}

type fakeCrash struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (c *fakeCrash) Report(_ context.Context, message, requester string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, [2]string{message, requester})
	return c.err
}

type fakeStopper struct {
	reasons []string
}

func (s *fakeStopper) Stop(reason string) { s.reasons = append(s.reasons, reason) }

type fakePoses struct{}

func (fakePoses) JointPoses(context.Context) []domain.JointPose {
	return []domain.JointPose{{Name: "waist", Tracked: true}}
}

func TestRequestLocalizedStringFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	localizer := &fakeLocalizer{tables: map[string]map[string]string{
		"":       {"common.ok": "OK", "title": "Host title"},
		"vendor": {"title": "Vendor title"},
	}}
	host := service.NewHostService(service.Dependencies{Localizer: localizer})

	cases := []struct {
		name  string
		key   string
		owner string
		want  string
	}{
		{name: "owner table", key: "title", owner: "vendor", want: "Vendor title"},
		{name: "host table", key: "common.ok", owner: "vendor", want: "OK"},
		{name: "host only", key: "title", owner: "", want: "Host title"},
		{name: "missing key", key: "nope", owner: "vendor", want: "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, host.RequestLocalizedString(ctx, tc.key, tc.owner))
		})
	}
}

func TestHostValidatesClosedEnums(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host := service.NewHostService(service.Dependencies{})

	require.ErrorIs(t, host.Log(ctx, "vendor", domain.LogSeverity("debug"), "x"), domain.ErrUnknownSeverity)
	require.NoError(t, host.Log(ctx, "vendor", domain.SeverityFatal, "x"))
	require.ErrorIs(t, host.PlaySound(ctx, "vendor", domain.Sound("boing")), domain.ErrUnknownSound)
	require.NoError(t, host.PlaySound(ctx, "vendor", domain.SoundCalibrationComplete))
	require.ErrorIs(t, host.DisplayToast(ctx, "vendor", " ", ""), apperrors.ErrInvalidInput)
	require.ErrorIs(t, host.RefreshLocalizationResourceRoot(ctx, "", "vendor"), apperrors.ErrInvalidInput)
	require.Nil(t, host.AppJointPoses(ctx))
}

func TestRequestExitHandsOffFatalOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	crash := &fakeCrash{err: errors.New("handler missing")}
	stopper := &fakeStopper{}
	host := service.NewHostService(service.Dependencies{Crash: crash, Stopper: stopper, Poses: fakePoses{}})

	require.NoError(t, host.RequestExit(ctx, domain.ExitRequest{Message: "driver lost", Requester: "vendor", Fatal: true}))
	require.ErrorIs(t, host.RequestExit(ctx, domain.ExitRequest{Message: "again", Requester: "vendor"}), apperrors.ErrHostStopping)

	require.Equal(t, [][2]string{{"driver lost", "vendor"}}, crash.calls)
	require.Len(t, stopper.reasons, 1)
	require.Contains(t, stopper.reasons[0], "driver lost")
	require.Len(t, host.AppJointPoses(ctx), 1)
}

func TestRequestExitNonFatalSkipsCrashHandler(t *testing.T) {
	t.Parallel()
	crash := &fakeCrash{}
	stopper := &fakeStopper{}
	host := service.NewHostService(service.Dependencies{Crash: crash, Stopper: stopper})

	require.NoError(t, host.RequestExit(context.Background(), domain.ExitRequest{Message: "bye", Requester: "vendor"}))
	require.Empty(t, crash.calls)
	require.Len(t, stopper.reasons, 1)
}
