package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"trackhost/internal/modules/plugin/domain"
	"trackhost/internal/platform/metrics"
)

const (
	defaultCallTimeout  = 2 * time.Second
	defaultReplyTimeout = 3 * time.Second
)

type FacadeOptions struct {
	CallTimeout  time.Duration
	ReplyTimeout time.Duration
	Logger       hclog.Logger
	Metrics      *metrics.Metrics
}

func (o FacadeOptions) withDefaults() FacadeOptions {
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = defaultReplyTimeout
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	return o
}

// facadeCore holds what both facades share: identity, the lifecycle state
// machine and the fault status of the last failed plugin call.
type facadeCore struct {
	candidate domain.Candidate
	opts      FacadeOptions
	logger    hclog.Logger

	lifecycleMu sync.Mutex

	mu       sync.Mutex
	state    domain.LifecycleState
	fault    *domain.Status
	startErr error
}

func (f *facadeCore) init(candidate domain.Candidate, opts FacadeOptions) {
	f.opts = opts.withDefaults()
	f.candidate = candidate
	f.logger = f.opts.Logger.Named(candidate.GUID)
	f.state = domain.StateDiscovered
}

func (f *facadeCore) Candidate() domain.Candidate { return f.candidate }
func (f *facadeCore) GUID() string                { return f.candidate.GUID }
func (f *facadeCore) Name() string                { return f.candidate.Name }
func (f *facadeCore) Path() string                { return f.candidate.Path }
func (f *facadeCore) Publisher() string           { return f.candidate.Publisher }
func (f *facadeCore) Website() string             { return f.candidate.Website }
func (f *facadeCore) UpdateURI() string           { return f.candidate.UpdateURI }
func (f *facadeCore) Version() string             { return f.candidate.Version }

func (f *facadeCore) State() domain.LifecycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *facadeCore) setState(state domain.LifecycleState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

func (f *facadeCore) shutDown() bool {
	return f.State() == domain.StateShutDown
}

// faultStatus reports the host fault left by the last failed call, if any.
func (f *facadeCore) faultStatus() (domain.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fault == nil {
		return domain.Status{}, false
	}
	return *f.fault, true
}

// StartFailure is the OnLoad or Initialize error that stopped the driver from
// starting this facade. It holds until the next rescan builds a new facade.
func (f *facadeCore) StartFailure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startErr
}

func (f *facadeCore) failStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

// polledStatus reports a start failure, else the plugin's own status, else
// the fault left by the failed poll.
func polledStatus(f *facadeCore, ctx context.Context, poll func(context.Context) (domain.Status, error)) domain.Status {
	if err := f.StartFailure(); err != nil {
		return domain.Status{Code: domain.StatusHostFault, Message: "start failed: " + err.Error()}
	}
	status, err := read(f, ctx, "status", poll)
	if err != nil {
		return faultFor(f, err)
	}
	return status
}

func (f *facadeCore) record(op string, err error) {
	f.mu.Lock()
	if err == nil {
		f.fault = nil
		f.mu.Unlock()
		return
	}
	f.fault = &domain.Status{Code: domain.StatusHostFault, Message: fmt.Sprintf("%s failed: %v", op, err)}
	f.mu.Unlock()
	f.logger.Warn("plugin call failed", "op", op, "error", err)
	f.opts.Metrics.PluginFaults.WithLabelValues(f.candidate.GUID, op).Inc()
}

// transition forwards a lifecycle call when the state machine allows it.
// Shutdown always lands in ShutDown and is only forwarded once, and only to
// a plugin that received OnLoad.
func (f *facadeCore) transition(ctx context.Context, call domain.LifecycleCall, op string, fn func(context.Context) error) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	current := f.State()
	next, err := domain.NextState(current, call)
	if err != nil {
		return err
	}
	if call == domain.CallShutdown {
		if current == domain.StateShutDown || current == domain.StateDiscovered {
			f.setState(domain.StateShutDown)
			return nil
		}
		_, err := invoke(f, ctx, op, f.opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
		f.setState(domain.StateShutDown)
		return err
	}
	if _, err := invoke(f, ctx, op, f.opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}); err != nil {
		return err
	}
	f.setState(next)
	return nil
}

// invoke runs fn against the plugin with a bounded wait. Errors and panics are
// recorded as a fault and returned; they never escape as panics.
func invoke[T any](f *facadeCore, ctx context.Context, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %s: %v", domain.ErrPluginPanic, op, r)}
			}
		}()
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	var result outcome
	select {
	case result = <-done:
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			result.err = fmt.Errorf("%w: %s", domain.ErrReplyTimeout, op)
		} else {
			result.err = callCtx.Err()
		}
	}
	f.record(op, result.err)
	return result.value, result.err
}

// read polls the plugin unless the facade is shut down.
func read[T any](f *facadeCore, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	if f.shutDown() {
		var zero T
		return zero, domain.ErrFacadeShutDown
	}
	return invoke(f, ctx, op, f.opts.CallTimeout, fn)
}

func (f *facadeCore) requireRunning() error {
	switch f.State() {
	case domain.StateInitialized, domain.StateActive:
		return nil
	case domain.StateShutDown:
		return domain.ErrFacadeShutDown
	default:
		return domain.ErrLifecycleOrder
	}
}
