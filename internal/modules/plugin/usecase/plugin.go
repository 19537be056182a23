package usecase

import (
	"context"

	"trackhost/internal/modules/plugin/dto"
	pluginin "trackhost/internal/modules/plugin/port/in"
	"trackhost/internal/modules/plugin/service"
)

type Interactor struct {
	svc *service.PluginService
}

func NewInteractor(svc *service.PluginService) pluginin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Rescan(ctx context.Context) (dto.ScanReport, error) {
	return i.svc.Rescan(ctx)
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) SetEnabled(ctx context.Context, pluginID string, enabled bool) (dto.ToggleResult, error) {
	return i.svc.SetEnabled(ctx, pluginID, enabled)
}

func (i *Interactor) Subscribe(ctx context.Context) (<-chan dto.EnablementChange, func()) {
	return i.svc.Subscribe(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) TestService(ctx context.Context) (dto.ConnectionReport, error) {
	return i.svc.TestService(ctx)
}

func (i *Interactor) AppJointPoses(ctx context.Context) []dto.JointPose {
	return i.svc.AppJointPoses(ctx)
}

func (i *Interactor) Run(ctx context.Context) error {
	return i.svc.Run(ctx)
}

func (i *Interactor) Close(ctx context.Context) error {
	return i.svc.Close(ctx)
}
