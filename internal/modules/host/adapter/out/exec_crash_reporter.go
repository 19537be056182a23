package out

import (
	"context"
	"fmt"
	"os/exec"

	hclog "github.com/hashicorp/go-hclog"

	hostout "trackhost/internal/modules/host/port/out"
)

// ExecCrashReporter launches the crash handler as a detached process with
// the message and requester as its two arguments.
type ExecCrashReporter struct {
	path   string
	logger hclog.Logger
}

var _ hostout.CrashReporter = ExecCrashReporter{}

func NewExecCrashReporter(path string, logger hclog.Logger) ExecCrashReporter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return ExecCrashReporter{path: path, logger: logger.Named("crash")}
}

func (r ExecCrashReporter) Report(_ context.Context, message, requester string) error {
	if r.path == "" {
		r.logger.Warn("no crash handler configured", "requester", requester, "message", message)
		return nil
	}
	cmd := exec.Command(r.path, message, requester)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start crash handler: %w", err)
	}
	r.logger.Info("crash handler started", "pid", cmd.Process.Pid, "requester", requester)
	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger.Warn("crash handler exited with error", "error", err)
		}
	}()
	return nil
}
