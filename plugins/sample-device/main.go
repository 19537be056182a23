// Command sample-device is a tracking-device plugin that streams a synthetic
// skeleton. Build it into a plugin directory as plugin_sample_device.
package main

import (
	"context"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	hostdomain "trackhost/internal/modules/host/domain"
	pluginrpc "trackhost/internal/modules/plugin/adapter/out/rpc"
	"trackhost/internal/modules/plugin/domain"
)

const guid = "trackhost.sample.device"

type skeleton struct {
	logger hclog.Logger
	start  time.Time

	mu          sync.Mutex
	host        *pluginrpc.HostClient
	initialized bool
	frame       uint64
	joints      []domain.TrackedJoint
	signaled    int
}

var layout = []struct {
	name   string
	role   domain.JointRole
	offset domain.Vector3
}{
	{"Head", domain.JointHead, domain.Vector3{Y: 1.7}},
	{"Chest", domain.JointSpineShoulder, domain.Vector3{Y: 1.4}},
	{"Waist", domain.JointSpineWaist, domain.Vector3{Y: 1.0}},
	{"Left knee", domain.JointKneeLeft, domain.Vector3{X: -0.1, Y: 0.5}},
	{"Right knee", domain.JointKneeRight, domain.Vector3{X: 0.1, Y: 0.5}},
	{"Left ankle", domain.JointAnkleLeft, domain.Vector3{X: -0.1, Y: 0.1}},
	{"Right ankle", domain.JointAnkleRight, domain.Vector3{X: 0.1, Y: 0.1}},
	{"Left foot", domain.JointFootLeft, domain.Vector3{X: -0.1, Z: 0.1}},
	{"Right foot", domain.JointFootRight, domain.Vector3{X: 0.1, Z: 0.1}},
}

func (s *skeleton) OnLoad(ctx context.Context, host *pluginrpc.HostClient) error {
	s.mu.Lock()
	s.host = host
	s.mu.Unlock()
	if host != nil {
		_ = host.Log(ctx, hostdomain.SeverityInfo, "sample skeleton loaded")
	}
	return nil
}

func (s *skeleton) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.initialized = true
	s.joints = s.pose(0)
	host := s.host
	s.mu.Unlock()
	if host != nil {
		_ = host.PlaySound(ctx, hostdomain.SoundShow)
	}
	s.logger.Info("skeleton initialized")
	return nil
}

func (s *skeleton) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	if s.host != nil {
		_ = s.host.Close()
		s.host = nil
	}
	return nil
}

func (s *skeleton) Update(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame++
	s.joints = s.pose(time.Since(s.start).Seconds())
	return nil
}

func (s *skeleton) SignalJoint(ctx context.Context, index int) error {
	s.mu.Lock()
	s.signaled = index
	host := s.host
	s.mu.Unlock()
	if host != nil {
		return host.PlaySound(ctx, hostdomain.SoundInvoke)
	}
	return nil
}

func (s *skeleton) State(context.Context) (domain.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := domain.Status{Code: domain.StatusOK, Message: "streaming"}
	if !s.initialized {
		status = domain.Status{Code: 1, Message: "not initialized"}
	}
	return domain.DeviceState{
		Status:          status,
		Initialized:     s.initialized,
		SkeletonTracked: s.initialized,
		Flags: domain.DeviceFlags{
			FlipSupported:          true,
			AppOrientationDeclared: true,
			SettingsPanel:          true,
		},
		Joints: append([]domain.TrackedJoint(nil), s.joints...),
	}, nil
}

func (s *skeleton) SettingsPanel(context.Context) (domain.SettingsPanel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SettingsPanel{
		Title: "Sample skeleton",
		Fields: []domain.SettingField{
			{Key: "frames", Label: "Frames", Value: strconv.FormatUint(s.frame, 10)},
		},
	}, nil
}

// pose sways the skeleton sideways around its rest layout.
func (s *skeleton) pose(seconds float64) []domain.TrackedJoint {
	sway := 0.05 * math.Sin(seconds)
	joints := make([]domain.TrackedJoint, 0, len(layout))
	for _, j := range layout {
		joints = append(joints, domain.TrackedJoint{
			Name: j.name,
			Role: j.role,
			Pose: domain.Pose{
				Position:    domain.Vector3{X: j.offset.X + sway, Y: j.offset.Y, Z: j.offset.Z},
				Orientation: domain.IdentityQuaternion,
			},
			State: domain.TrackingTracked,
		})
	}
	return joints
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
		Name:       "Sample Skeleton",
		Publisher:  "trackhost",
		Version:    "1.0.0",
		APIVersion: domain.APIVersion,
		Exports:    []string{domain.ContractDevice},
	}, &skeleton{logger: logger, start: time.Now()}, nil)
}
