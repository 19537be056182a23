package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/host/domain"
	hostin "trackhost/internal/modules/host/port/in"
	hostout "trackhost/internal/modules/host/port/out"
	apperrors "trackhost/internal/platform/errors"
)

type Dependencies struct {
	Sounds    hostout.SoundPlayer
	Notifier  hostout.Notifier
	Crash     hostout.CrashReporter
	Localizer hostout.Localizer
	Poses     hostout.PoseSource
	Stopper   hostout.Stopper
	Logger    hclog.Logger
}

// HostService answers plugin callbacks.
type HostService struct {
	deps     Dependencies
	logger   hclog.Logger
	stopping atomic.Bool
}

var _ hostin.PluginHost = (*HostService)(nil)

func NewHostService(deps Dependencies) *HostService {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HostService{deps: deps, logger: logger.Named("plugin")}
}

func (s *HostService) Log(_ context.Context, owner string, severity domain.LogSeverity, message string) error {
	if err := severity.Validate(); err != nil {
		return err
	}
	logger := s.ownerLogger(owner)
	switch severity {
	case domain.SeverityFatal:
		logger.Error(message, "severity", string(severity))
	case domain.SeverityError:
		logger.Error(message)
	case domain.SeverityWarning:
		logger.Warn(message)
	default:
		logger.Info(message)
	}
	return nil
}

func (s *HostService) PlaySound(ctx context.Context, owner string, sound domain.Sound) error {
	if err := sound.Validate(); err != nil {
		return err
	}
	if s.deps.Sounds == nil {
		return nil
	}
	if err := s.deps.Sounds.Play(ctx, sound); err != nil {
		s.ownerLogger(owner).Warn("play sound failed", "sound", sound, "error", err)
		return err
	}
	return nil
}

func (s *HostService) DisplayToast(ctx context.Context, owner, header, text string) error {
	if strings.TrimSpace(header) == "" && strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: toast needs a header or text", apperrors.ErrInvalidInput)
	}
	if s.deps.Notifier == nil {
		return nil
	}
	if err := s.deps.Notifier.Toast(ctx, header, text); err != nil {
		s.ownerLogger(owner).Warn("toast failed", "error", err)
		return err
	}
	return nil
}

// RequestLocalizedString looks in the owner's table, then the host's, and
// falls back to the key itself.
func (s *HostService) RequestLocalizedString(ctx context.Context, key, owner string) string {
	if key == "" || s.deps.Localizer == nil {
		return key
	}
	if owner != "" {
		if value, err := s.deps.Localizer.Lookup(ctx, owner, key); err == nil {
			return value
		} else if !errors.Is(err, domain.ErrStringNotFound) {
			s.ownerLogger(owner).Debug("localized string lookup failed", "key", key, "error", err)
		}
	}
	if value, err := s.deps.Localizer.Lookup(ctx, "", key); err == nil {
		return value
	}
	return key
}

func (s *HostService) RefreshLocalizationResourceRoot(ctx context.Context, path, owner string) error {
	if strings.TrimSpace(path) == "" || owner == "" {
		return fmt.Errorf("%w: localization root and owner are required", apperrors.ErrInvalidInput)
	}
	if s.deps.Localizer == nil {
		return nil
	}
	if err := s.deps.Localizer.SetRoot(ctx, owner, path); err != nil {
		return err
	}
	s.ownerLogger(owner).Debug("localization root refreshed", "path", path)
	return nil
}

func (s *HostService) AppJointPoses(ctx context.Context) []domain.JointPose {
	if s.deps.Poses == nil {
		return nil
	}
	return s.deps.Poses.JointPoses(ctx)
}

// RequestExit hands fatal requests to the crash reporter and then stops the
// host. Only the first request is honored.
func (s *HostService) RequestExit(ctx context.Context, request domain.ExitRequest) error {
	if !s.stopping.CompareAndSwap(false, true) {
		return apperrors.ErrHostStopping
	}
	logger := s.ownerLogger(request.Requester)
	if request.Fatal {
		logger.Error("plugin requested a fatal exit", "message", request.Message)
		if s.deps.Crash != nil {
			if err := s.deps.Crash.Report(ctx, request.Message, request.Requester); err != nil {
				logger.Error("crash handoff failed", "error", err)
			}
		}
	} else {
		logger.Info("plugin requested exit", "message", request.Message)
	}
	if s.deps.Stopper != nil {
		s.deps.Stopper.Stop(fmt.Sprintf("exit requested by %s: %s", request.Requester, request.Message))
	}
	return nil
}

func (s *HostService) ownerLogger(owner string) hclog.Logger {
	if owner == "" {
		return s.logger
	}
	return s.logger.Named(owner)
}
