package in

import (
	"context"

	"trackhost/internal/modules/plugin/dto"
)

type Usecase interface {
	Rescan(ctx context.Context) (dto.ScanReport, error)
	List(ctx context.Context) ([]dto.PluginInfo, error)
	SetEnabled(ctx context.Context, pluginID string, enabled bool) (dto.ToggleResult, error)
	Subscribe(ctx context.Context) (<-chan dto.EnablementChange, func())
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	TestService(ctx context.Context) (dto.ConnectionReport, error)
	AppJointPoses(ctx context.Context) []dto.JointPose
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

// PoseProvider is the slice of the usecase the host facade reads poses from.
type PoseProvider interface {
	AppJointPoses(ctx context.Context) []dto.JointPose
}
