package in

import (
	"context"

	"trackhost/internal/modules/host/domain"
)

// PluginHost is the callback surface every loaded plugin receives. owner is
// the calling plugin's guid.
type PluginHost interface {
	Log(ctx context.Context, owner string, severity domain.LogSeverity, message string) error
	PlaySound(ctx context.Context, owner string, sound domain.Sound) error
	DisplayToast(ctx context.Context, owner, header, text string) error
	RequestLocalizedString(ctx context.Context, key, owner string) string
	RefreshLocalizationResourceRoot(ctx context.Context, path, owner string) error
	AppJointPoses(ctx context.Context) []domain.JointPose
	RequestExit(ctx context.Context, request domain.ExitRequest) error
}
