package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/modules/plugin/dto"
	"trackhost/internal/platform/clock"
	apperrors "trackhost/internal/platform/errors"
	"trackhost/internal/platform/id"
)

type Options struct {
	Roots           []string
	Facade          FacadeOptions
	ShutdownTimeout time.Duration
}

type PluginService struct {
	discoverer *Discoverer
	registry   *Registry
	governor   *Governor
	driver     *Driver
	ids        id.Generator
	clock      clock.Clock
	opts       Options
	logger     hclog.Logger

	// scanMu is held for the whole of a scan. Explicit rescans fail fast on
	// it; the first lazy scan waits for it.
	scanMu  sync.Mutex
	scanned atomic.Bool
	closeMu sync.Mutex
}

func NewPluginService(discoverer *Discoverer, registry *Registry, governor *Governor, driver *Driver, ids id.Generator, clk clock.Clock, opts Options, logger hclog.Logger) *PluginService {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	opts.Facade = opts.Facade.withDefaults()
	return &PluginService{
		discoverer: discoverer,
		registry:   registry,
		governor:   governor,
		driver:     driver,
		ids:        ids,
		clock:      clk,
		opts:       opts,
		logger:     logger.Named("plugins"),
	}
}

// Rescan rediscovers every plugin root and replaces the registry. The
// previous generation is shut down and closed once the new one is in place.
func (s *PluginService) Rescan(ctx context.Context) (dto.ScanReport, error) {
	if !s.scanMu.TryLock() {
		return dto.ScanReport{}, apperrors.ErrScanInProgress
	}
	defer s.scanMu.Unlock()
	return s.scan(ctx)
}

// scan runs one discovery pass. Callers hold scanMu.
func (s *PluginService) scan(ctx context.Context) (dto.ScanReport, error) {
	report := dto.ScanReport{ScanID: s.ids.New(), StartedAt: s.clock.Now()}
	dirs := PluginDirectories(s.opts.Roots)
	s.logger.Info("scanning plugin directories", "scan_id", report.ScanID, "dirs", len(dirs))

	discovered := s.discoverer.Discover(ctx, report.ScanID, dirs)
	old := s.registry.Replace(BuildEntries(discovered, s.opts.Facade))
	closeEntries(ctx, old, s.logger)

	reenabled, err := s.governor.Reconcile(ctx)
	if err != nil {
		return dto.ScanReport{}, err
	}
	s.scanned.Store(true)
	report.Reenabled = reenabled
	report.Plugins = s.list()
	report.FinishedAt = s.clock.Now()
	return report, nil
}

func (s *PluginService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return nil, err
	}
	return s.list(), nil
}

func (s *PluginService) list() []dto.PluginInfo {
	entries := s.registry.Entries()
	out := make([]dto.PluginInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, s.pluginInfo(entry.Candidate))
	}
	return out
}

func (s *PluginService) pluginInfo(c domain.Candidate) dto.PluginInfo {
	return dto.PluginInfo{
		ID:                     c.ID(),
		GUID:                   c.GUID,
		Name:                   c.Name,
		Path:                   c.Path,
		Publisher:              c.Publisher,
		Website:                c.Website,
		UpdateURI:              c.UpdateURI,
		Version:                c.Version,
		APIVersion:             c.APIVersion,
		Kind:                   string(c.Kind),
		Outcome:                string(c.Outcome),
		Severity:               string(c.Severity),
		Error:                  c.Error,
		UnresolvedDependencies: append([]string(nil), c.UnresolvedDependencies...),
		Loaded:                 c.Loaded(),
		Enabled:                c.Loaded() && s.governor.IsEnabled(c.ID()),
		DiscoveredAt:           c.DiscoveredAt,
	}
}

func (s *PluginService) SetEnabled(ctx context.Context, pluginID string, enabled bool) (dto.ToggleResult, error) {
	if pluginID == "" {
		return dto.ToggleResult{}, fmt.Errorf("%w: plugin id is required", apperrors.ErrInvalidInput)
	}
	if err := s.ensureScanned(ctx); err != nil {
		return dto.ToggleResult{}, err
	}
	return s.governor.SetEnabled(ctx, pluginID, enabled)
}

func (s *PluginService) Subscribe(context.Context) (<-chan dto.EnablementChange, func()) {
	return s.governor.Subscribe()
}

// Doctor reports every recorded candidate together with a live status poll
// of the loaded ones.
func (s *PluginService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return nil, err
	}
	entries := s.registry.Entries()
	results := make([]dto.DoctorResult, 0, len(entries))
	for _, entry := range entries {
		c := entry.Candidate
		result := dto.DoctorResult{
			ID:                     c.ID(),
			Name:                   c.Name,
			Kind:                   string(c.Kind),
			Outcome:                string(c.Outcome),
			Severity:               string(c.Severity),
			Error:                  c.Error,
			UnresolvedDependencies: append([]string(nil), c.UnresolvedDependencies...),
			Enabled:                c.Loaded() && s.governor.IsEnabled(c.ID()),
		}
		var status domain.Status
		switch {
		case entry.Device != nil:
			status = entry.Device.Status(ctx)
			result.AppOrientation = entry.Device.IsAppOrientationSupported(ctx)
		case entry.Service != nil:
			status = entry.Service.Status(ctx)
			for _, tracker := range entry.Service.SupportedTrackerTypes(ctx) {
				result.SupportedTrackers = append(result.SupportedTrackers, string(tracker))
			}
		default:
			results = append(results, result)
			continue
		}
		result.StatusCode = status.Code
		result.StatusMessage = status.Message
		results = append(results, result)
	}
	return results, nil
}

// TestService starts the primary tracking service if needed and asks it to
// check its connection.
func (s *PluginService) TestService(ctx context.Context) (dto.ConnectionReport, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return dto.ConnectionReport{}, err
	}
	s.driver.Activate(ctx)
	service := s.driver.primaryService()
	if service == nil {
		return dto.ConnectionReport{}, apperrors.ErrNoActiveService
	}
	result := service.TestConnection(ctx)
	return dto.ConnectionReport{
		ServiceID:     service.GUID(),
		ServiceName:   service.Name(),
		StatusCode:    result.Status.Code,
		StatusMessage: result.Status.Message,
		Detail:        result.Detail,
	}, nil
}

// AppJointPoses returns the joints the primary device reported on the last tick.
func (s *PluginService) AppJointPoses(context.Context) []dto.JointPose {
	joints := s.driver.JointSnapshot()
	out := make([]dto.JointPose, 0, len(joints))
	for _, joint := range joints {
		p := joint.Pose
		out = append(out, dto.JointPose{
			Name:        joint.Name,
			Role:        string(joint.Role),
			Position:    [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
			Orientation: [4]float64{p.Orientation.W, p.Orientation.X, p.Orientation.Y, p.Orientation.Z},
			Tracked:     joint.State == domain.TrackingTracked,
		})
	}
	return out
}

// Run drives the plugins until ctx ends, then shuts every facade down and
// closes every module.
func (s *PluginService) Run(ctx context.Context) error {
	if err := s.ensureScanned(ctx); err != nil {
		return err
	}
	runErr := s.driver.Run(ctx)
	closeCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, s.Close(closeCtx))
}

// Close releases the current registry generation.
func (s *PluginService) Close(ctx context.Context) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	closeEntries(ctx, s.registry.Replace(nil), s.logger)
	return nil
}

// ensureScanned runs the first scan on demand. Concurrent first callers wait
// for the scan already in flight instead of failing.
func (s *PluginService) ensureScanned(ctx context.Context) error {
	if s.scanned.Load() {
		return nil
	}
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scanned.Load() {
		return nil
	}
	_, err := s.scan(ctx)
	return err
}
