// Command sample-service is a tracking-service plugin that keeps the last
// pose of every tracker in memory. Build it into a plugin directory as
// plugin_sample_service.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	hostdomain "trackhost/internal/modules/host/domain"
	pluginrpc "trackhost/internal/modules/plugin/adapter/out/rpc"
	"trackhost/internal/modules/plugin/domain"
)

const guid = "trackhost.sample.service"

type sink struct {
	logger hclog.Logger

	mu         sync.Mutex
	host       *pluginrpc.HostClient
	running    bool
	heartbeats uint64
	autoStart  bool
	autoClose  bool
	trackers   map[string]domain.Tracker
}

func (s *sink) OnLoad(ctx context.Context, host *pluginrpc.HostClient) error {
	s.mu.Lock()
	s.host = host
	s.mu.Unlock()
	if host != nil {
		_ = host.Log(ctx, hostdomain.SeverityInfo, "sample sink loaded")
	}
	return nil
}

func (s *sink) Initialize(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.trackers = map[string]domain.Tracker{}
	return nil
}

func (s *sink) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.host != nil {
		_ = s.host.Close()
		s.host = nil
	}
	return nil
}

func (s *sink) Heartbeat(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *sink) Status(context.Context) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return domain.Status{Code: 1, Message: "idle"}, nil
	}
	return domain.Status{Code: domain.StatusOK, Message: fmt.Sprintf("%d trackers", len(s.trackers))}, nil
}

func (s *sink) Settings(context.Context) (domain.ServiceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ServiceSettings{
		AdditionalTrackers: []domain.TrackerType{domain.TrackerLeftKnee, domain.TrackerRightKnee, domain.TrackerChest},
		HostVisible:        true,
		CanAutoStart:       true,
		AutoStart:          s.autoStart,
		AutoClose:          s.autoClose,
	}, nil
}

func (s *sink) HeadsetPose(context.Context) (domain.Pose, bool, error) {
	return domain.Pose{}, false, nil
}

func (s *sink) SetAutoStart(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoStart = enabled
	return nil
}

func (s *sink) SetAutoClose(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoClose = enabled
	return nil
}

func (s *sink) TestConnection(context.Context) (domain.ConnectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConnectionResult{
		Status: domain.Status{Code: domain.StatusOK, Message: "connected"},
		Detail: fmt.Sprintf("in-memory sink, %d heartbeats", s.heartbeats),
	}, nil
}

func (s *sink) SetTrackerStates(_ context.Context, trackers []domain.Tracker, _ bool) ([]domain.TrackerResult, error) {
	return s.store(trackers, func(stored *domain.Tracker, in domain.Tracker) {
		stored.Enabled = in.Enabled
		stored.State = in.State
	}), nil
}

func (s *sink) UpdateTrackerPoses(_ context.Context, trackers []domain.Tracker, _ bool) ([]domain.TrackerResult, error) {
	return s.store(trackers, func(stored *domain.Tracker, in domain.Tracker) {
		stored.Pose = in.Pose
		stored.State = in.State
	}), nil
}

// store applies every tracker it knows the role of and rejects the rest.
func (s *sink) store(trackers []domain.Tracker, apply func(*domain.Tracker, domain.Tracker)) []domain.TrackerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]domain.TrackerResult, 0, len(trackers))
	for _, in := range trackers {
		if !s.running || in.Serial == "" || in.Role == "" {
			results = append(results, domain.TrackerResult{Tracker: in})
			continue
		}
		stored, ok := s.trackers[in.Serial]
		if !ok {
			stored = domain.Tracker{Serial: in.Serial, Role: in.Role, Enabled: true}
		}
		apply(&stored, in)
		s.trackers[in.Serial] = stored
		results = append(results, domain.TrackerResult{Tracker: stored, Success: true})
	}
	return results
}

func (s *sink) RequestServiceRestart(_ context.Context, reason string, _ bool) (bool, error) {
	s.logger.Info("restart requested", "reason", reason)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackers = map[string]domain.Tracker{}
	return true, nil
}

func (s *sink) SettingsPanel(context.Context) (domain.SettingsPanel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SettingsPanel{
		Title: "Sample sink",
		Fields: []domain.SettingField{
			{Key: "trackers", Label: "Trackers", Value: fmt.Sprint(len(s.trackers))},
		},
	}, nil
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       guid,
		Level:      hclog.Info,
		Output:     os.Stderr,
		JSONFormat: true,
	})
	pluginrpc.Serve(pluginrpc.StaticMetadata{
		GUID:       guid,
		Name:       "Sample Sink",
		Publisher:  "trackhost",
		Version:    "1.0.0",
		APIVersion: domain.APIVersion,
		Exports:    []string{domain.ContractService},
	}, nil, &sink{logger: logger, trackers: map[string]domain.Tracker{}})
}
