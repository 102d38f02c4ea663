// Package runner builds a Session from configuration and drives its deferred
// work from a TimeController.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/dna-repair-sim/core"
	"github.com/signalsfoundry/dna-repair-sim/internal/config"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/schedule"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/timectrl"
)

// Runner owns a session, the clock its scheduler reads, and the tick loop
// that fires due events.
type Runner struct {
	Session   *state.Session
	Clock     *timectrl.TimeController
	Scheduler schedule.EventScheduler

	log  logging.Logger
	mode timectrl.Mode

	mu     sync.Mutex
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Option customises a Runner.
type Option func(*options)

type options struct {
	mode     timectrl.Mode
	session  []state.Option
	observer schedule.Observer
}

// WithMode selects the clock mode. RealTime is the default; Accelerated
// advances simulated time as fast as the loop runs.
func WithMode(m timectrl.Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithSchedulerObserver reports deferred-event activity to o.
func WithSchedulerObserver(o schedule.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithSessionOptions passes extra options to state.NewSession, applied after
// the ones derived from config.
func WithSessionOptions(opts ...state.Option) Option {
	return func(o *options) { o.session = append(o.session, opts...) }
}

// New validates cfg and builds a session whose deferred reset is scheduled on
// a TimeController-backed scheduler.
func New(cfg config.Config, log logging.Logger, opts ...Option) (*Runner, error) {
	if log == nil {
		log = logging.Noop()
	}
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ref, err := cfg.ReferenceSequence()
	if err != nil {
		return nil, err
	}

	o := options{mode: timectrl.RealTime}
	for _, opt := range opts {
		opt(&o)
	}

	clock := timectrl.NewTimeController(time.Now(), cfg.Tick, o.mode)
	var schedOpts []schedule.Option
	if o.observer != nil {
		schedOpts = append(schedOpts, schedule.WithObserver(o.observer))
	}
	sched := schedule.NewEventScheduler(clock, schedOpts...)

	var src core.RandomSource
	if cfg.Seed != 0 {
		src = core.NewSeededSource(cfg.Seed)
	}
	sessionOpts := append([]state.Option{
		state.WithGenerator(core.NewMutationGenerator(src)),
		state.WithScheduler(sched),
		state.WithResetDelay(cfg.ResetDelay),
	}, o.session...)

	session, err := state.NewSession(ref, log, sessionOpts...)
	if err != nil {
		return nil, err
	}

	clock.AddListener(func(time.Time) { sched.RunDue() })

	return &Runner{
		Session:   session,
		Clock:     clock,
		Scheduler: sched,
		log:       log,
		mode:      o.mode,
	}, nil
}

// Start begins ticking until ctx is done or Stop is called. Starting twice is
// a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = r.Clock.Start(ctx, 0)
	r.log.Info(ctx, "time controller started",
		logging.String("mode", r.mode.String()),
		logging.Duration("tick", r.Clock.Tick),
	)
}

// Stop halts the tick loop, waits for it to exit and closes the session.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	r.Session.Close()
}
