package rpc

import (
	"context"

	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SessionService serves one Session over gRPC.
type SessionService struct {
	session *state.Session
	log     logging.Logger
}

var _ SessionServiceServer = (*SessionService)(nil)

// NewSessionService constructs a SessionService bound to session.
func NewSessionService(session *state.Session, log logging.Logger) *SessionService {
	if log == nil {
		log = logging.Noop()
	}
	return &SessionService{
		session: session,
		log:     log,
	}
}

// IntroduceMutation mutates the reference at the requested 0-based position.
func (s *SessionService) IntroduceMutation(ctx context.Context, in *wrapperspb.Int32Value) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	pos := int(in.GetValue())
	ctx, span := StartChildSpan(ctx, "session.IntroduceMutation", s.session.ID(), attribute.Int("position", pos))
	defer span.End()

	m, err := s.session.IntroduceMutation(ctx, pos)
	if err != nil {
		return nil, s.fail(ctx, span, "introduce mutation", err)
	}
	span.SetAttributes(
		attribute.String("original", m.Original.String()),
		attribute.String("replacement", m.Replacement.String()),
	)
	return s.view()
}

// RevealComplement makes the complementary strand visible.
func (s *SessionService) RevealComplement(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "session.RevealComplement", s.session.ID())
	defer span.End()

	if err := s.session.RevealComplement(ctx); err != nil {
		return nil, s.fail(ctx, span, "reveal complement", err)
	}
	return s.view()
}

// SubmitRepair proposes a base for the mutated position. An incorrect base is
// not an error. The response carries the verdict in last_repair_correct, set
// from the submission rather than the view taken afterwards.
func (s *SessionService) SubmitRepair(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "session.SubmitRepair", s.session.ID(), attribute.String("proposed", in.GetValue()))
	defer span.End()

	base, err := model.ParseBase(in.GetValue())
	if err != nil {
		return nil, s.fail(ctx, span, "submit repair", err)
	}
	correct, err := s.session.SubmitRepair(ctx, base)
	if err != nil {
		return nil, s.fail(ctx, span, "submit repair", err)
	}
	span.SetAttributes(attribute.Bool("correct", correct))
	out, err := s.view()
	if err != nil {
		return nil, err
	}
	out.Fields[repairVerdictField] = structpb.NewBoolValue(correct)
	return out, nil
}

// Reset returns the session to Clean.
func (s *SessionService) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "session.Reset", s.session.ID())
	defer span.End()

	if err := s.session.Reset(ctx); err != nil {
		return nil, s.fail(ctx, span, "reset", err)
	}
	return s.view()
}

// GetSession returns the current view without changing state.
func (s *SessionService) GetSession(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return s.view()
}

func (s *SessionService) view() (*structpb.Struct, error) {
	out, err := ViewToStruct(s.session.View())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode session view: %v", err)
	}
	return out, nil
}

func (s *SessionService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	logging.FromContext(ctx, s.log).Debug(ctx, op+" rejected", logging.Err(err))
	return ToStatusError(err)
}

func (s *SessionService) ensureReady() error {
	if s == nil || s.session == nil {
		return status.Error(codes.FailedPrecondition, "session is not configured")
	}
	return nil
}
