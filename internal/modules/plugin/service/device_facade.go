package service

import (
	"context"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

// TrackingDevice is the host's view of one device plugin. Every read polls
// the plugin; nothing is cached here.
type TrackingDevice struct {
	facadeCore
	contract pluginout.DeviceContract
}

func NewTrackingDevice(candidate domain.Candidate, contract pluginout.DeviceContract, opts FacadeOptions) *TrackingDevice {
	d := &TrackingDevice{contract: contract}
	d.init(candidate, opts)
	return d
}

func (d *TrackingDevice) OnLoad(ctx context.Context) error {
	return d.transition(ctx, domain.CallOnLoad, "on_load", d.contract.OnLoad)
}

func (d *TrackingDevice) Initialize(ctx context.Context) error {
	return d.transition(ctx, domain.CallInitialize, "initialize", d.contract.Initialize)
}

// Update runs one host tick against the device.
func (d *TrackingDevice) Update(ctx context.Context) error {
	return d.transition(ctx, domain.CallTick, "update", d.contract.Update)
}

// Shutdown is idempotent. Nothing is forwarded after the first call.
func (d *TrackingDevice) Shutdown(ctx context.Context) error {
	return d.transition(ctx, domain.CallShutdown, "shutdown", d.contract.Shutdown)
}

func (d *TrackingDevice) SignalJoint(ctx context.Context, index int) error {
	if index < 0 {
		return domain.ErrInvalidJointIndex
	}
	if err := d.requireRunning(); err != nil {
		return err
	}
	_, err := invoke(&d.facadeCore, ctx, "signal_joint", d.opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.contract.SignalJoint(ctx, index)
	})
	return err
}

// Status returns the plugin's status, or the host fault status while the
// last call into the plugin has failed.
func (d *TrackingDevice) Status(ctx context.Context) domain.Status {
	return polledStatus(&d.facadeCore, ctx, d.contract.Status)
}

// Snapshot is one coherent poll of the device's live state.
func (d *TrackingDevice) Snapshot(ctx context.Context) (domain.DeviceState, error) {
	return read(&d.facadeCore, ctx, "state", d.contract.State)
}

func (d *TrackingDevice) IsInitialized(ctx context.Context) bool {
	state, err := d.Snapshot(ctx)
	return err == nil && state.Initialized
}

func (d *TrackingDevice) IsSkeletonTracked(ctx context.Context) bool {
	state, err := d.Snapshot(ctx)
	return err == nil && state.SkeletonTracked
}

func (d *TrackingDevice) Flags(ctx context.Context) (domain.DeviceFlags, error) {
	return read(&d.facadeCore, ctx, "flags", d.contract.Flags)
}

func (d *TrackingDevice) TrackedJoints(ctx context.Context) ([]domain.TrackedJoint, error) {
	return read(&d.facadeCore, ctx, "tracked_joints", d.contract.TrackedJoints)
}

// IsAppOrientationSupported derives the composite capability from a single
// poll of the declared flag and the current joint list.
func (d *TrackingDevice) IsAppOrientationSupported(ctx context.Context) bool {
	state, err := d.Snapshot(ctx)
	return err == nil && state.AppOrientationSupported()
}

func (d *TrackingDevice) SettingsPanel(ctx context.Context) (domain.SettingsPanel, error) {
	return read(&d.facadeCore, ctx, "settings_panel", d.contract.SettingsPanel)
}

func faultFor(f *facadeCore, err error) domain.Status {
	if fault, ok := f.faultStatus(); ok {
		return fault
	}
	return domain.Status{Code: domain.StatusHostFault, Message: err.Error()}
}
