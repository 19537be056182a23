package out

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/host/domain"
	hostout "trackhost/internal/modules/host/port/out"
)

// LogSink stands in for audio and desktop notifications on a headless host.
type LogSink struct {
	logger hclog.Logger
}

var (
	_ hostout.SoundPlayer = LogSink{}
	_ hostout.Notifier    = LogSink{}
)

func NewLogSink(logger hclog.Logger) LogSink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return LogSink{logger: logger.Named("ui")}
}

func (s LogSink) Play(_ context.Context, sound domain.Sound) error {
	s.logger.Debug("sound", "name", string(sound))
	return nil
}

func (s LogSink) Toast(_ context.Context, header, text string) error {
	s.logger.Info("toast", "header", header, "text", text)
	return nil
}
