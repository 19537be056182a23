package out

import (
	"context"
	"sync"

	"trackhost/internal/modules/host/domain"
	hostout "trackhost/internal/modules/host/port/out"
	plugindto "trackhost/internal/modules/plugin/dto"
	pluginin "trackhost/internal/modules/plugin/port/in"
)

// PluginPoseSource reads joint poses from the plugin module. The host is
// built before the plugin module exists, so the provider is bound later.
type PluginPoseSource struct {
	mu       sync.RWMutex
	provider pluginin.PoseProvider
}

var _ hostout.PoseSource = (*PluginPoseSource)(nil)

func (s *PluginPoseSource) Bind(provider pluginin.PoseProvider) {
	s.mu.Lock()
	s.provider = provider
	s.mu.Unlock()
}

func (s *PluginPoseSource) JointPoses(ctx context.Context) []domain.JointPose {
	s.mu.RLock()
	provider := s.provider
	s.mu.RUnlock()
	if provider == nil {
		return nil
	}
	return toJointPoses(provider.AppJointPoses(ctx))
}

func toJointPoses(in []plugindto.JointPose) []domain.JointPose {
	out := make([]domain.JointPose, 0, len(in))
	for _, pose := range in {
		out = append(out, domain.JointPose{
			Name:        pose.Name,
			Role:        pose.Role,
			Position:    pose.Position,
			Orientation: pose.Orientation,
			Tracked:     pose.Tracked,
		})
	}
	return out
}
