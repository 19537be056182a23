package in

import (
	"context"

	"trackhost/internal/modules/plugin/dto"
	pluginin "trackhost/internal/modules/plugin/port/in"
)

type CLIHandler struct {
	usecase pluginin.Usecase
}

func NewCLIHandler(usecase pluginin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Rescan(ctx context.Context) (dto.ScanReport, error) {
	return h.usecase.Rescan(ctx)
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Enable(ctx context.Context, pluginID string) (dto.ToggleResult, error) {
	return h.usecase.SetEnabled(ctx, pluginID, true)
}

func (h CLIHandler) Disable(ctx context.Context, pluginID string) (dto.ToggleResult, error) {
	return h.usecase.SetEnabled(ctx, pluginID, false)
}

func (h CLIHandler) Subscribe(ctx context.Context) (<-chan dto.EnablementChange, func()) {
	return h.usecase.Subscribe(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) TestService(ctx context.Context) (dto.ConnectionReport, error) {
	return h.usecase.TestService(ctx)
}

func (h CLIHandler) Run(ctx context.Context) error {
	return h.usecase.Run(ctx)
}

func (h CLIHandler) Close(ctx context.Context) error {
	return h.usecase.Close(ctx)
}

func (h CLIHandler) AppJointPoses(ctx context.Context) []dto.JointPose {
	return h.usecase.AppJointPoses(ctx)
}
