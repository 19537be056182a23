package out

import (
	"context"

	"trackhost/internal/modules/host/domain"
)

type SoundPlayer interface {
	Play(ctx context.Context, sound domain.Sound) error
}

type Notifier interface {
	Toast(ctx context.Context, header, text string) error
}

type CrashReporter interface {
	Report(ctx context.Context, message, requester string) error
}

// Localizer resolves string keys per owner. An empty owner means the host's own table.
type Localizer interface {
	Lookup(ctx context.Context, owner, key string) (string, error)
	SetRoot(ctx context.Context, owner, path string) error
}

type PoseSource interface {
	JointPoses(ctx context.Context) []domain.JointPose
}

// Stopper ends the host run loop.
type Stopper interface {
	Stop(reason string)
}
