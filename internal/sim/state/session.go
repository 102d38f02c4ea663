// Package state holds the mutation-repair session: the reference strand, the
// single active mutation and the repair attempt, driven through a small
// state machine by the presentation layer.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/dna-repair-sim/core"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/schedule"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"github.com/signalsfoundry/dna-repair-sim/timectrl"
)

// Re-export the core sentinels so callers can match on state.* alone.
var (
	// ErrInvalidPosition indicates a mutation position outside the reference.
	ErrInvalidPosition = core.ErrInvalidPosition
	// ErrInvalidBase indicates a proposed base outside A/T/C/G.
	ErrInvalidBase = model.ErrInvalidBase
	// ErrNoActiveMutation indicates an operation that needs a mutation ran while Clean.
	ErrNoActiveMutation = errors.New("no active mutation")
	// ErrMutationActive indicates a second mutation was requested while one is pending.
	ErrMutationActive = errors.New("a mutation is already active")
	// ErrAlreadyRepaired indicates a repair was submitted after the mutation was fixed.
	ErrAlreadyRepaired = errors.New("mutation already repaired")
	// ErrSessionClosed indicates the session was torn down.
	ErrSessionClosed = errors.New("session closed")
)

// DefaultResetDelay is how long a successful repair stays on display before
// the session returns to Clean.
const DefaultResetDelay = 2 * time.Second

// DefaultReference is the strand a session starts from when none is given.
const DefaultReference = "ATCGTAGCTA"

// Phase is the lifecycle position of a Session.
type Phase int

const (
	// PhaseClean has no mutation.
	PhaseClean Phase = iota
	// PhaseMutated has an active mutation with the complement still hidden.
	PhaseMutated
	// PhaseRevealing has the complement revealed and awaits a correct repair.
	PhaseRevealing
	// PhaseRepaired is transient: the correct base was submitted and the
	// deferred reset is pending.
	PhaseRepaired
)

func (p Phase) String() string {
	switch p {
	case PhaseClean:
		return "clean"
	case PhaseMutated:
		return "mutated"
	case PhaseRevealing:
		return "revealing"
	case PhaseRepaired:
		return "repaired"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(name string) (Phase, error) {
	for p := PhaseClean; p <= PhaseRepaired; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return PhaseClean, fmt.Errorf("unknown phase %q", name)
}

// MetricsRecorder receives session events. Phases are passed by name.
type MetricsRecorder interface {
	RecordTransition(from, to string)
	RecordMutation(original, replacement string)
	RecordRepairAttempt(correct bool)
}

// Session is one simulation run. All methods are safe for concurrent use;
// operations run to completion under the session lock.
type Session struct {
	mu sync.Mutex

	id        string
	reference model.Sequence

	mutation    *model.Mutation
	proposed    model.Base
	hasProposal bool
	revealed    bool
	repaired    bool
	closed      bool

	// generation increases whenever a transition supersedes the current
	// repair cycle; deferred callbacks from older generations are ignored.
	generation uint64
	resetToken string
	resetDelay time.Duration

	generator *core.MutationGenerator
	scheduler schedule.EventScheduler
	log       logging.Logger
	metrics   MetricsRecorder
}

// Option customises Session construction.
type Option func(*Session)

// WithGenerator sets the mutation generator, typically one built on a fixed
// random source in tests.
func WithGenerator(g *core.MutationGenerator) Option {
	return func(s *Session) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithScheduler sets the scheduler the deferred reset is placed on. The
// caller is responsible for driving its RunDue.
func WithScheduler(sched schedule.EventScheduler) Option {
	return func(s *Session) {
		if sched != nil {
			s.scheduler = sched
		}
	}
}

// WithResetDelay overrides DefaultResetDelay. Non-positive values are ignored.
func WithResetDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.resetDelay = d
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSession starts a Clean session over ref. The reference is copied and
// never modified afterwards.
func NewSession(ref model.Sequence, log logging.Logger, opts ...Option) (*Session, error) {
	if ref.Len() == 0 {
		return nil, model.ErrEmptySequence
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &Session{
		id:         uuid.NewString(),
		reference:  ref.Clone(),
		resetDelay: DefaultResetDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.generator == nil {
		s.generator = core.NewMutationGenerator(nil)
	}
	if s.scheduler == nil {
		s.scheduler = schedule.NewEventScheduler(timectrl.WallClock{})
	}
	s.log = log.With(logging.String("session_id", s.id))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Scheduler returns the scheduler holding the deferred reset.
func (s *Session) Scheduler() schedule.EventScheduler { return s.scheduler }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.mutation == nil:
		return PhaseClean
	case s.repaired:
		return PhaseRepaired
	case s.revealed:
		return PhaseRevealing
	default:
		return PhaseMutated
	}
}

// IntroduceMutation substitutes a random different base at pos. It is only
// allowed from Clean and always starts a fresh repair attempt.
func (s *Session) IntroduceMutation(ctx context.Context, pos int) (model.Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Mutation{}, ErrSessionClosed
	}
	if s.mutation != nil {
		s.log.Debug(ctx, "mutation rejected", logging.Int("position", pos), logging.String("phase", s.phaseLocked().String()))
		return model.Mutation{}, ErrMutationActive
	}

	m, err := s.generator.Generate(s.reference, pos)
	if err != nil {
		s.log.Debug(ctx, "mutation rejected", logging.Int("position", pos), logging.Err(err))
		return model.Mutation{}, fmt.Errorf("introduce mutation: %w", err)
	}

	from := s.phaseLocked()
	s.supersedeLocked()
	s.mutation = &m
	s.hasProposal = false
	s.revealed = false
	s.repaired = false
	s.transitionLocked(ctx, from)

	if s.metrics != nil {
		s.metrics.RecordMutation(m.Original.String(), m.Replacement.String())
	}
	s.log.Info(ctx, "mutation introduced",
		logging.Int("position", m.DisplayPosition()),
		logging.String("original", m.Original.String()),
		logging.String("replacement", m.Replacement.String()),
	)
	return m, nil
}

// RevealComplement makes the complementary strand visible. Revealing twice
// is a no-op.
func (s *Session) RevealComplement(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.mutation == nil {
		s.log.Debug(ctx, "reveal rejected", logging.Err(ErrNoActiveMutation))
		return ErrNoActiveMutation
	}
	if s.revealed {
		return nil
	}
	from := s.phaseLocked()
	s.revealed = true
	s.transitionLocked(ctx, from)
	return nil
}

// SubmitRepair records proposed as the user's repair. A correct base moves
// the session to Repaired and schedules the return to Clean; a wrong one
// leaves the phase unchanged with the guess visible. Attempts are unlimited.
func (s *Session) SubmitRepair(ctx context.Context, proposed model.Base) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	if s.mutation == nil {
		s.log.Debug(ctx, "repair rejected", logging.Err(ErrNoActiveMutation))
		return false, ErrNoActiveMutation
	}
	if s.repaired {
		return false, ErrAlreadyRepaired
	}

	correct, err := core.EvaluateRepair(s.reference, *s.mutation, proposed)
	if err != nil {
		s.log.Debug(ctx, "repair rejected", logging.Err(err))
		return false, fmt.Errorf("submit repair: %w", err)
	}

	s.proposed = proposed
	s.hasProposal = true
	if s.metrics != nil {
		s.metrics.RecordRepairAttempt(correct)
	}
	if !correct {
		s.log.Info(ctx, "incorrect repair", logging.String("proposed", proposed.String()))
		return false, nil
	}

	from := s.phaseLocked()
	s.repaired = true
	s.scheduleResetLocked()
	s.transitionLocked(ctx, from)
	s.log.Info(ctx, "mutation repaired",
		logging.String("base", proposed.String()),
		logging.Duration("reset_in", s.resetDelay),
	)
	return true, nil
}

// Reset returns the session to the canonical Clean state from any phase and
// cancels a pending deferred reset.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	from := s.phaseLocked()
	s.clearLocked()
	if from != PhaseClean {
		s.transitionLocked(ctx, from)
	}
	return nil
}

// Close tears the session down. Pending deferred work is cancelled and later
// operations fail with ErrSessionClosed. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.supersedeLocked()
	s.closed = true
	s.log.Debug(context.Background(), "session closed")
}

// clearLocked restores canonical Clean. Caller must hold s.mu.
func (s *Session) clearLocked() {
	s.supersedeLocked()
	s.mutation = nil
	s.proposed = 0
	s.hasProposal = false
	s.revealed = false
	s.repaired = false
}

// supersedeLocked invalidates the current repair cycle: the pending token is
// cancelled and any callback that already left the scheduler becomes stale.
// Caller must hold s.mu.
func (s *Session) supersedeLocked() {
	s.generation++
	if s.resetToken != "" {
		s.scheduler.Cancel(s.resetToken)
		s.resetToken = ""
	}
}

// scheduleResetLocked places the deferred return to Clean. Caller must hold s.mu.
func (s *Session) scheduleResetLocked() {
	gen := s.generation
	at := s.scheduler.Now().Add(s.resetDelay)
	s.resetToken = s.scheduler.Schedule(at, func() {
		s.autoReset(gen)
	})
}

func (s *Session) autoReset(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if s.closed || gen != s.generation || !s.repaired {
		s.log.Debug(ctx, "stale reset ignored")
		return
	}
	s.resetToken = ""
	from := s.phaseLocked()
	s.clearLocked()
	s.transitionLocked(ctx, from)
}

func (s *Session) transitionLocked(ctx context.Context, from Phase) {
	to := s.phaseLocked()
	if s.metrics != nil {
		s.metrics.RecordTransition(from.String(), to.String())
	}
	s.log.Debug(ctx, "phase transition",
		logging.String("from", from.String()),
		logging.String("to", to.String()),
	)
}
