package out

import (
	"context"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	hostout "trackhost/internal/modules/host/port/out"
)

// CancelStopper ends the host by cancelling the run context it is bound to.
type CancelStopper struct {
	logger hclog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	reason string
}

var _ hostout.Stopper = (*CancelStopper)(nil)

func NewCancelStopper(logger hclog.Logger) *CancelStopper {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CancelStopper{logger: logger}
}

func (s *CancelStopper) Bind(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *CancelStopper) Stop(reason string) {
	s.mu.Lock()
	cancel := s.cancel
	if s.reason == "" {
		s.reason = reason
	}
	s.mu.Unlock()
	s.logger.Info("host stopping", "reason", reason)
	if cancel != nil {
		cancel()
	}
}

// Reason reports why the host was stopped, if it was.
func (s *CancelStopper) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
