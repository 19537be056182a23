package service

import (
	"context"
	"sync"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

// ServiceEndpoint is the host's view of one tracking-service plugin.
type ServiceEndpoint struct {
	facadeCore
	contract pluginout.ServiceContract

	backgroundMu sync.Mutex
	closing      bool
	inflight     sync.WaitGroup
}

func NewServiceEndpoint(candidate domain.Candidate, contract pluginout.ServiceContract, opts FacadeOptions) *ServiceEndpoint {
	s := &ServiceEndpoint{contract: contract}
	s.init(candidate, opts)
	return s
}

func (s *ServiceEndpoint) OnLoad(ctx context.Context) error {
	return s.transition(ctx, domain.CallOnLoad, "on_load", s.contract.OnLoad)
}

func (s *ServiceEndpoint) Initialize(ctx context.Context) error {
	return s.transition(ctx, domain.CallInitialize, "initialize", s.contract.Initialize)
}

func (s *ServiceEndpoint) Heartbeat(ctx context.Context) error {
	return s.transition(ctx, domain.CallTick, "heartbeat", s.contract.Heartbeat)
}

// Shutdown waits for background operations, then forwards shutdown once.
func (s *ServiceEndpoint) Shutdown(ctx context.Context) error {
	s.backgroundMu.Lock()
	s.closing = true
	s.backgroundMu.Unlock()
	s.inflight.Wait()
	return s.transition(ctx, domain.CallShutdown, "shutdown", s.contract.Shutdown)
}

func (s *ServiceEndpoint) Status(ctx context.Context) domain.Status {
	return polledStatus(&s.facadeCore, ctx, s.contract.Status)
}

func (s *ServiceEndpoint) Settings(ctx context.Context) (domain.ServiceSettings, error) {
	return read(&s.facadeCore, ctx, "settings", s.contract.Settings)
}

// SupportedTrackerTypes falls back to the mandatory set when settings cannot be read.
func (s *ServiceEndpoint) SupportedTrackerTypes(ctx context.Context) []domain.TrackerType {
	settings, err := s.Settings(ctx)
	if err != nil {
		return append([]domain.TrackerType(nil), domain.MandatoryTrackers...)
	}
	return settings.SupportedTrackers()
}

type headsetPose struct {
	pose    domain.Pose
	present bool
}

// HeadsetPose reports ok=false when the service has no headset pose.
func (s *ServiceEndpoint) HeadsetPose(ctx context.Context) (domain.Pose, bool) {
	result, err := read(&s.facadeCore, ctx, "headset_pose", func(ctx context.Context) (headsetPose, error) {
		pose, present, err := s.contract.HeadsetPose(ctx)
		return headsetPose{pose: pose, present: present}, err
	})
	if err != nil || !result.present {
		return domain.Pose{}, false
	}
	return result.pose, true
}

func (s *ServiceEndpoint) SetAutoStart(ctx context.Context, enabled bool) error {
	_, err := read(&s.facadeCore, ctx, "set_auto_start", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.contract.SetAutoStart(ctx, enabled)
	})
	return err
}

func (s *ServiceEndpoint) SetAutoClose(ctx context.Context, enabled bool) error {
	_, err := read(&s.facadeCore, ctx, "set_auto_close", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.contract.SetAutoClose(ctx, enabled)
	})
	return err
}

func (s *ServiceEndpoint) SettingsPanel(ctx context.Context) (domain.SettingsPanel, error) {
	return read(&s.facadeCore, ctx, "settings_panel", s.contract.SettingsPanel)
}

// TestConnection waits at most the reply timeout. Failures come back as a
// host fault status.
func (s *ServiceEndpoint) TestConnection(ctx context.Context) domain.ConnectionResult {
	if s.shutDown() {
		return domain.ConnectionResult{Status: faultFor(&s.facadeCore, domain.ErrFacadeShutDown)}
	}
	result, err := invoke(&s.facadeCore, ctx, "test_connection", s.opts.ReplyTimeout, s.contract.TestConnection)
	if err != nil {
		return domain.ConnectionResult{Status: faultFor(&s.facadeCore, err)}
	}
	return result
}

// SetTrackerStates returns one result per input tracker when wantReply is
// set. Without wantReply the call runs in the background and nil is returned.
func (s *ServiceEndpoint) SetTrackerStates(ctx context.Context, trackers []domain.Tracker, wantReply bool) []domain.TrackerResult {
	return s.trackerOp(ctx, "set_tracker_states", trackers, wantReply, s.contract.SetTrackerStates)
}

func (s *ServiceEndpoint) UpdateTrackerPoses(ctx context.Context, trackers []domain.Tracker, wantReply bool) []domain.TrackerResult {
	return s.trackerOp(ctx, "update_tracker_poses", trackers, wantReply, s.contract.UpdateTrackerPoses)
}

func (s *ServiceEndpoint) RequestServiceRestart(ctx context.Context, reason string, wantReply bool) bool {
	if s.shutDown() {
		return false
	}
	call := func(ctx context.Context) (bool, error) {
		return s.contract.RequestServiceRestart(ctx, reason, wantReply)
	}
	if !wantReply {
		background(s, "request_service_restart", call)
		return false
	}
	accepted, err := invoke(&s.facadeCore, ctx, "request_service_restart", s.opts.ReplyTimeout, call)
	return err == nil && accepted
}

type trackerCall func(ctx context.Context, trackers []domain.Tracker, wantReply bool) ([]domain.TrackerResult, error)

func (s *ServiceEndpoint) trackerOp(ctx context.Context, op string, trackers []domain.Tracker, wantReply bool, call trackerCall) []domain.TrackerResult {
	trackers = append([]domain.Tracker(nil), trackers...)
	if s.shutDown() {
		if !wantReply {
			return nil
		}
		return s.countResults(op, domain.FailAll(trackers))
	}
	if !wantReply {
		background(s, op, func(ctx context.Context) ([]domain.TrackerResult, error) {
			return call(ctx, trackers, false)
		})
		return nil
	}
	replies, err := invoke(&s.facadeCore, ctx, op, s.opts.ReplyTimeout, func(ctx context.Context) ([]domain.TrackerResult, error) {
		return call(ctx, trackers, true)
	})
	if err != nil {
		return s.countResults(op, domain.FailAll(trackers))
	}
	return s.countResults(op, domain.AlignResults(trackers, replies))
}

func (s *ServiceEndpoint) countResults(op string, results []domain.TrackerResult) []domain.TrackerResult {
	for _, result := range results {
		outcome := "failure"
		if result.Success {
			outcome = "success"
		}
		s.opts.Metrics.TrackerUpdates.WithLabelValues(op, outcome).Inc()
	}
	return results
}

// background dispatches fn detached from the caller's context, bounded by
// the reply timeout. Shutdown waits for it.
func background[T any](s *ServiceEndpoint, op string, fn func(context.Context) (T, error)) {
	s.backgroundMu.Lock()
	if s.closing {
		s.backgroundMu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.backgroundMu.Unlock()
	go func() {
		defer s.inflight.Done()
		_, _ = invoke(&s.facadeCore, context.Background(), op, s.opts.ReplyTimeout, fn)
	}()
}
