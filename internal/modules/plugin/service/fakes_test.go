package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"trackhost/internal/modules/plugin/domain"
	pluginout "trackhost/internal/modules/plugin/port/out"
)

// recorder collects the plugin calls a fake received and can make any of
// them fail, panic or hang.
type recorder struct {
	mu      sync.Mutex
	calls   []string
	failOn  map[string]error
	panicOn map[string]bool
	hangOn  map[string]chan struct{}
}

func (r *recorder) hit(op string) error {
	r.mu.Lock()
	r.calls = append(r.calls, op)
	err := r.failOn[op]
	shouldPanic := r.panicOn[op]
	hang := r.hangOn[op]
	r.mu.Unlock()
	if hang != nil {
		<-hang
	}
	if shouldPanic {
		panic("fake plugin panic in " + op)
	}
	return err
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(op string) int {
	n := 0
	for _, call := range r.Calls() {
		if call == op {
			n++
		}
	}
	return n
}

func (r *recorder) setFail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == nil {
		r.failOn = map[string]error{}
	}
	r.failOn[op] = err
}

func (r *recorder) setPanic(op string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOn == nil {
		r.panicOn = map[string]bool{}
	}
	r.panicOn[op] = on
}

func (r *recorder) setHang(op string, release chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hangOn == nil {
		r.hangOn = map[string]chan struct{}{}
	}
	r.hangOn[op] = release
}

type fakeDevice struct {
	recorder
	status domain.Status
	state  domain.DeviceState
}

var _ pluginout.DeviceContract = (*fakeDevice)(nil)

func (d *fakeDevice) OnLoad(context.Context) error     { return d.hit("on_load") }
func (d *fakeDevice) Initialize(context.Context) error { return d.hit("initialize") }
func (d *fakeDevice) Shutdown(context.Context) error   { return d.hit("shutdown") }
func (d *fakeDevice) Update(context.Context) error     { return d.hit("update") }

func (d *fakeDevice) SignalJoint(context.Context, int) error { return d.hit("signal_joint") }

func (d *fakeDevice) Status(context.Context) (domain.Status, error) {
	return d.status, d.hit("status")
}

func (d *fakeDevice) Flags(context.Context) (domain.DeviceFlags, error) {
	return d.state.Flags, d.hit("flags")
}

func (d *fakeDevice) TrackedJoints(context.Context) ([]domain.TrackedJoint, error) {
	return d.state.Joints, d.hit("tracked_joints")
}

func (d *fakeDevice) State(context.Context) (domain.DeviceState, error) {
	return d.state, d.hit("state")
}

func (d *fakeDevice) SettingsPanel(context.Context) (domain.SettingsPanel, error) {
	return domain.SettingsPanel{}, d.hit("settings_panel")
}

type fakeService struct {
	recorder
	status   domain.Status
	settings domain.ServiceSettings
	// reply builds the per-tracker replies; nil accepts every tracker.
	reply func([]domain.Tracker) []domain.TrackerResult

	receivedMu sync.Mutex
	received   [][]domain.Tracker
}

var _ pluginout.ServiceContract = (*fakeService)(nil)

func (s *fakeService) OnLoad(context.Context) error     { return s.hit("on_load") }
func (s *fakeService) Initialize(context.Context) error { return s.hit("initialize") }
func (s *fakeService) Shutdown(context.Context) error   { return s.hit("shutdown") }
func (s *fakeService) Heartbeat(context.Context) error  { return s.hit("heartbeat") }

func (s *fakeService) Status(context.Context) (domain.Status, error) {
	return s.status, s.hit("status")
}

func (s *fakeService) Settings(context.Context) (domain.ServiceSettings, error) {
	return s.settings, s.hit("settings")
}

func (s *fakeService) HeadsetPose(context.Context) (domain.Pose, bool, error) {
	return domain.Pose{Orientation: domain.IdentityQuaternion}, true, s.hit("headset_pose")
}

func (s *fakeService) SetAutoStart(context.Context, bool) error { return s.hit("set_auto_start") }
func (s *fakeService) SetAutoClose(context.Context, bool) error { return s.hit("set_auto_close") }

func (s *fakeService) TestConnection(context.Context) (domain.ConnectionResult, error) {
	return domain.ConnectionResult{Status: s.status, Detail: "fake"}, s.hit("test_connection")
}

func (s *fakeService) SetTrackerStates(_ context.Context, trackers []domain.Tracker, _ bool) ([]domain.TrackerResult, error) {
	return s.trackers("set_tracker_states", trackers)
}

func (s *fakeService) UpdateTrackerPoses(_ context.Context, trackers []domain.Tracker, _ bool) ([]domain.TrackerResult, error) {
	return s.trackers("update_tracker_poses", trackers)
}

func (s *fakeService) trackers(op string, trackers []domain.Tracker) ([]domain.TrackerResult, error) {
	if err := s.hit(op); err != nil {
		return nil, err
	}
	s.receivedMu.Lock()
	s.received = append(s.received, trackers)
	s.receivedMu.Unlock()
	if s.reply != nil {
		return s.reply(trackers), nil
	}
	out := make([]domain.TrackerResult, len(trackers))
	for i, tracker := range trackers {
		out[i] = domain.TrackerResult{Tracker: tracker, Success: true}
	}
	return out, nil
}

func (s *fakeService) Received() [][]domain.Tracker {
	s.receivedMu.Lock()
	defer s.receivedMu.Unlock()
	return append([][]domain.Tracker(nil), s.received...)
}

func (s *fakeService) RequestServiceRestart(context.Context, string, bool) (bool, error) {
	return true, s.hit("request_service_restart")
}

func (s *fakeService) SettingsPanel(context.Context) (domain.SettingsPanel, error) {
	return domain.SettingsPanel{}, s.hit("settings_panel")
}

type fakeModule struct {
	path       string
	meta       domain.Metadata
	metaErr    error
	device     *fakeDevice
	service    *fakeService
	unresolved []string

	mu     sync.Mutex
	closed int
}

func (m *fakeModule) Path() string { return m.path }

func (m *fakeModule) Metadata(context.Context) (domain.Metadata, error) {
	return m.meta, m.metaErr
}

func (m *fakeModule) Device(context.Context, string) (pluginout.DeviceContract, error) {
	if m.device == nil {
		return nil, domain.ErrContractMissing
	}
	return m.device, nil
}

func (m *fakeModule) Service(context.Context, string) (pluginout.ServiceContract, error) {
	if m.service == nil {
		return nil, domain.ErrContractMissing
	}
	return m.service, nil
}

func (m *fakeModule) UnresolvedDependencies() []string { return m.unresolved }

func (m *fakeModule) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *fakeModule) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fakeLoader serves modules by file name. Unknown names fail as unreadable files.
type fakeLoader struct {
	mu      sync.Mutex
	modules map[string]*fakeModule
	errs    map[string]error
	panics  map[string]bool
	loaded  []string
	// gate, when set, holds every Load until it is closed.
	gate chan struct{}
}

func (l *fakeLoader) Load(_ context.Context, path string) (pluginout.Module, error) {
	name := filepath.Base(path)
	l.mu.Lock()
	l.loaded = append(l.loaded, name)
	module, ok := l.modules[name]
	err := l.errs[name]
	shouldPanic := l.panics[name]
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if shouldPanic {
		panic("loader exploded")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewLoadError(domain.OutcomeFileSystemError, path, errors.New("no such fake module"))
	}
	module.path = path
	return module, nil
}

func (l *fakeLoader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}

type memoryEnablementStore struct {
	mu       sync.Mutex
	disabled domain.DisabledSet
	saves    int
	saveErr  error
}

func (s *memoryEnablementStore) LoadDisabled(context.Context) (domain.DisabledSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled == nil {
		return domain.NewDisabledSet(), nil
	}
	return s.disabled.Clone(), nil
}

func (s *memoryEnablementStore) SaveDisabled(_ context.Context, disabled domain.DisabledSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.disabled = disabled.Clone()
	s.saves++
	return nil
}

func (s *memoryEnablementStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func deviceMeta(guid string) domain.Metadata {
	return domain.Metadata{GUID: guid, Name: guid, Version: "1.0.0", APIVersion: domain.APIVersion, Exports: []string{domain.ContractDevice}}
}

func serviceMeta(guid string) domain.Metadata {
	return domain.Metadata{GUID: guid, Name: guid, Version: "1.0.0", APIVersion: domain.APIVersion, Exports: []string{domain.ContractService}}
}
