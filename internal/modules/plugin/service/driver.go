package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/platform/metrics"
)

type DriverOptions struct {
	TickInterval time.Duration
	// Parallelism bounds concurrent device updates within one tick.
	Parallelism int
}

// Driver advances enabled plugins on a fixed tick and feeds the primary
// device's skeleton to the primary tracking service.
type Driver struct {
	registry *Registry
	governor *Governor
	opts     DriverOptions
	logger   hclog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	joints []domain.TrackedJoint
}

func NewDriver(registry *Registry, governor *Governor, opts DriverOptions, logger hclog.Logger, m *metrics.Metrics) *Driver {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 33 * time.Millisecond
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Driver{registry: registry, governor: governor, opts: opts, logger: logger.Named("driver"), metrics: m}
}

// Run ticks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	d.Activate(ctx)
	ticker := time.NewTicker(d.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Activate loads and initializes enabled plugins that have not started yet.
// Services go first so devices never produce poses with no consumer.
func (d *Driver) Activate(ctx context.Context) {
	entries := d.registry.Entries()
	for _, entry := range entries {
		if entry.Service != nil && d.governor.IsEnabled(entry.ID()) {
			d.start(ctx, entry.ID(), entry.Service)
		}
	}
	for _, entry := range entries {
		if entry.Device != nil && d.governor.IsEnabled(entry.ID()) {
			d.start(ctx, entry.ID(), entry.Device)
		}
	}
}

type startable interface {
	State() domain.LifecycleState
	StartFailure() error
	OnLoad(ctx context.Context) error
	Initialize(ctx context.Context) error
	failStart(err error)
}

// start runs OnLoad then Initialize once. A facade that fails either step is
// left alone until the next rescan replaces it.
func (d *Driver) start(ctx context.Context, id string, plugin startable) {
	if plugin.State() != domain.StateDiscovered || plugin.StartFailure() != nil {
		return
	}
	if err := plugin.OnLoad(ctx); err != nil {
		plugin.failStart(fmt.Errorf("on_load: %w", err))
		d.logger.Warn("plugin on_load failed; not retried until rescan", "id", id, "error", err)
		return
	}
	if err := plugin.Initialize(ctx); err != nil {
		plugin.failStart(fmt.Errorf("initialize: %w", err))
		d.logger.Warn("plugin initialize failed; not retried until rescan", "id", id, "error", err)
		return
	}
	d.logger.Info("plugin started", "id", id)
}

// Tick runs one host frame.
func (d *Driver) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { d.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	d.Activate(ctx)
	devices := d.runningDevices()
	service := d.primaryService()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Parallelism)
	for _, device := range devices {
		g.Go(func() error {
			if flags, err := device.Flags(gctx); err == nil && flags.SelfUpdating {
				return nil
			}
			if err := device.Update(gctx); err != nil {
				d.logger.Trace("device update failed", "id", device.GUID(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if service != nil {
		if err := service.Heartbeat(ctx); err != nil {
			d.logger.Trace("service heartbeat failed", "id", service.GUID(), "error", err)
		}
	}
	if len(devices) == 0 {
		return
	}
	state, err := devices[0].Snapshot(ctx)
	if err != nil {
		return
	}
	d.setJoints(state.Joints)
	if service == nil {
		return
	}
	trackers := domain.ComposeTrackers(state.Joints, service.SupportedTrackerTypes(ctx))
	if len(trackers) == 0 {
		return
	}
	for _, result := range service.UpdateTrackerPoses(ctx, trackers, true) {
		if !result.Success {
			d.logger.Trace("tracker pose rejected", "serial", result.Tracker.Serial)
		}
	}
}

// JointSnapshot returns the joints of the primary device as of the last tick.
func (d *Driver) JointSnapshot() []domain.TrackedJoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.TrackedJoint, len(d.joints))
	copy(out, d.joints)
	return out
}

func (d *Driver) setJoints(joints []domain.TrackedJoint) {
	copied := make([]domain.TrackedJoint, len(joints))
	copy(copied, joints)
	d.mu.Lock()
	d.joints = copied
	d.mu.Unlock()
}

func (d *Driver) runningDevices() []*TrackingDevice {
	var out []*TrackingDevice
	for _, entry := range d.registry.Entries() {
		if entry.Device == nil || !d.governor.IsEnabled(entry.ID()) {
			continue
		}
		if entry.Device.requireRunning() == nil {
			out = append(out, entry.Device)
		}
	}
	return out
}

// primaryService is the first enabled, running service in registry order.
func (d *Driver) primaryService() *ServiceEndpoint {
	for _, entry := range d.registry.Entries() {
		if entry.Service == nil || !d.governor.IsEnabled(entry.ID()) {
			continue
		}
		if entry.Service.requireRunning() == nil {
			return entry.Service
		}
	}
	return nil
}
