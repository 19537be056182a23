package out

import (
	"context"

	"trackhost/internal/modules/plugin/domain"
)

// Loader starts one plugin binary inside its own resolution scope.
type Loader interface {
	Load(ctx context.Context, path string) (Module, error)
}

// Module is a loaded plugin binary. Contracts are only valid until Close.
type Module interface {
	Path() string
	Metadata(ctx context.Context) (domain.Metadata, error)
	// Device and Service bind host callbacks to owner, the plugin guid.
	Device(ctx context.Context, owner string) (DeviceContract, error)
	Service(ctx context.Context, owner string) (ServiceContract, error)
	UnresolvedDependencies() []string
	Close() error
}

type DeviceContract interface {
	OnLoad(ctx context.Context) error
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Update(ctx context.Context) error
	SignalJoint(ctx context.Context, index int) error
	Status(ctx context.Context) (domain.Status, error)
	Flags(ctx context.Context) (domain.DeviceFlags, error)
	TrackedJoints(ctx context.Context) ([]domain.TrackedJoint, error)
	State(ctx context.Context) (domain.DeviceState, error)
	SettingsPanel(ctx context.Context) (domain.SettingsPanel, error)
}

type ServiceContract interface {
	OnLoad(ctx context.Context) error
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Heartbeat(ctx context.Context) error
	Status(ctx context.Context) (domain.Status, error)
	Settings(ctx context.Context) (domain.ServiceSettings, error)
	HeadsetPose(ctx context.Context) (domain.Pose, bool, error)
	SetAutoStart(ctx context.Context, enabled bool) error
	SetAutoClose(ctx context.Context, enabled bool) error
	TestConnection(ctx context.Context) (domain.ConnectionResult, error)
	SetTrackerStates(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error)
	UpdateTrackerPoses(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error)
	RequestServiceRestart(ctx context.Context, reason string, wantReply bool) (bool, error)
	SettingsPanel(ctx context.Context) (domain.SettingsPanel, error)
}

// SettingsStore is the host's key/value settings object.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type EnablementStore interface {
	LoadDisabled(ctx context.Context) (domain.DisabledSet, error)
	SaveDisabled(ctx context.Context, disabled domain.DisabledSet) error
}
