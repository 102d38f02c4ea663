package rpc

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"github.com/signalsfoundry/dna-repair-sim/core"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/schedule"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var testStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, picks ...int) (*state.Session, *schedule.FakeEventScheduler) {
	t.Helper()
	sched := schedule.NewFakeEventScheduler(testStart)
	s, err := state.NewSession(
		model.MustParseSequence(state.DefaultReference),
		logging.Noop(),
		state.WithGenerator(core.NewMutationGenerator(core.NewFixedSource(picks...))),
		state.WithScheduler(sched),
	)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, sched
}

// dialSession serves session over an in-memory listener with the production
// interceptor chain and returns a client for it.
func dialSession(t *testing.T, session *state.Session) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(logging.Noop()),
		TracingUnaryServerInterceptor(),
	))
	RegisterSessionServiceServer(srv, NewSessionService(session, logging.Noop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(RequestIDUnaryClientInterceptor()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestSessionServiceMutateThenComplement(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, 2)
	client := dialSession(t, session)

	v, err := client.IntroduceMutation(ctx, 0)
	if err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	if v.Phase != state.PhaseMutated {
		t.Fatalf("phase = %s, want mutated", v.Phase)
	}
	if v.Current.String() != "GTCGTAGCTA" || v.Complement.String() != "CAGCATCGAT" {
		t.Fatalf("current/complement = %s/%s", v.Current, v.Complement)
	}
	if v.Mutation == nil || v.Mutation.Position != 0 || v.Mutation.Original != model.A || v.Mutation.Replacement != model.G {
		t.Fatalf("mutation = %+v", v.Mutation)
	}
	if len(v.Bonds) != 10 || v.Bonds[0] != 3 || v.Bonds[1] != 2 {
		t.Fatalf("bonds = %v", v.Bonds)
	}
	if v.Hint != model.Unknown {
		t.Fatalf("hint before reveal = %s", v.Hint)
	}

	v, err = client.RevealComplement(ctx)
	if err != nil {
		t.Fatalf("RevealComplement: %v", err)
	}
	if v.Phase != state.PhaseRevealing || v.Hint != model.C {
		t.Fatalf("after reveal phase=%s hint=%s", v.Phase, v.Hint)
	}
}

func TestSessionServiceCorrectRepairResetsAfterDelay(t *testing.T) {
	ctx := context.Background()
	session, sched := newTestSession(t, 2)
	client := dialSession(t, session)

	if _, err := client.IntroduceMutation(ctx, 0); err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	if _, err := client.RevealComplement(ctx); err != nil {
		t.Fatalf("RevealComplement: %v", err)
	}
	correct, v, err := client.SubmitRepair(ctx, model.A)
	if err != nil {
		t.Fatalf("SubmitRepair: %v", err)
	}
	if !correct || v.Phase != state.PhaseRepaired || !v.ResetPending {
		t.Fatalf("after repair correct=%v view=%+v", correct, v)
	}

	sched.Advance(state.DefaultResetDelay - time.Millisecond)
	if v, _ := client.View(ctx); v.Phase != state.PhaseRepaired {
		t.Fatalf("reset fired early: %s", v.Phase)
	}
	sched.Advance(time.Millisecond)
	v, err = client.View(ctx)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Phase != state.PhaseClean || v.Mutation != nil || v.Proposed != nil || v.Revealed {
		t.Fatalf("not clean after delay: %+v", v)
	}
}

func TestSessionServiceIncorrectRepairKeepsMutation(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, 2)
	client := dialSession(t, session)

	if _, err := client.IntroduceMutation(ctx, 0); err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	correct, v, err := client.SubmitRepair(ctx, model.C)
	if err != nil {
		t.Fatalf("SubmitRepair: %v", err)
	}
	if correct || v.Phase != state.PhaseMutated {
		t.Fatalf("incorrect repair: correct=%v phase=%s", correct, v.Phase)
	}
	if v.Proposed == nil || *v.Proposed != model.C || v.ProposalCorrect {
		t.Fatalf("proposal not reported: %+v", v)
	}
	if v.Current.String() != "GTCGTAGCTA" {
		t.Fatalf("current = %s", v.Current)
	}
}

func TestSessionServiceErrorCodes(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, 0)
	client := dialSession(t, session)

	_, err := client.RevealComplement(ctx)
	assertRemoteError(t, err, codes.FailedPrecondition, state.ErrNoActiveMutation)

	_, _, err = client.SubmitRepair(ctx, model.A)
	assertRemoteError(t, err, codes.FailedPrecondition, state.ErrNoActiveMutation)

	_, err = client.IntroduceMutation(ctx, 10)
	assertRemoteError(t, err, codes.InvalidArgument, state.ErrInvalidPosition)

	if _, err := client.IntroduceMutation(ctx, 3); err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	_, err = client.IntroduceMutation(ctx, 4)
	assertRemoteError(t, err, codes.FailedPrecondition, state.ErrMutationActive)

	session.Close()
	_, err = client.Reset(ctx)
	assertRemoteError(t, err, codes.Unavailable, state.ErrSessionClosed)
}

func TestSessionServiceRejectsMalformedBase(t *testing.T) {
	session, _ := newTestSession(t, 0)
	svc := NewSessionService(session, logging.Noop())
	ctx := context.Background()

	if _, err := svc.IntroduceMutation(ctx, wrapperspb.Int32(1)); err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	for _, raw := range []string{"", "X", "AT"} {
		_, err := svc.SubmitRepair(ctx, wrapperspb.String(raw))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("SubmitRepair(%q) code = %v, want InvalidArgument", raw, status.Code(err))
		}
	}
	// lower-case letters are accepted
	if _, err := svc.SubmitRepair(ctx, wrapperspb.String("t")); err != nil {
		t.Fatalf("SubmitRepair(t): %v", err)
	}
}

func TestSessionServiceNotConfigured(t *testing.T) {
	svc := NewSessionService(nil, nil)
	_, err := svc.GetSession(context.Background(), &emptypb.Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %v, want FailedPrecondition", status.Code(err))
	}
}

func TestRequestIDInterceptorUsesIncomingMetadata(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(logging.Noop())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "req-42"))

	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodGetSession)},
		func(ctx context.Context, req any) (any, error) {
			seen = logging.RequestIDFromContext(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-42" {
		t.Fatalf("request id = %q, want req-42", seen)
	}
}

func assertRemoteError(t *testing.T, err error, code codes.Code, sentinel error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error", code)
	}
	if got := status.Code(err); got != code {
		t.Fatalf("code = %v, want %v (%v)", got, code, err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is(%v, %v) = false", err, sentinel)
	}
}

func TestClientRejectsPositionOutsideWireRange(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, 0)
	client := dialSession(t, session)

	for _, pos := range []int{math.MaxInt32 + 1, math.MinInt32 - 1} {
		_, err := client.IntroduceMutation(ctx, pos)
		if !errors.Is(err, state.ErrInvalidPosition) {
			t.Fatalf("IntroduceMutation(%d) err = %v, want ErrInvalidPosition", pos, err)
		}
	}
	v, err := client.View(ctx)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Phase != state.PhaseClean || v.Current.String() != state.DefaultReference {
		t.Fatalf("out-of-range position changed the session: phase=%s current=%s", v.Phase, v.Current)
	}
}

func TestSessionServiceSubmitRepairCarriesVerdict(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, 2)
	svc := NewSessionService(session, logging.Noop())

	if _, err := svc.IntroduceMutation(ctx, wrapperspb.Int32(0)); err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	out, err := svc.SubmitRepair(ctx, wrapperspb.String("A"))
	if err != nil {
		t.Fatalf("SubmitRepair: %v", err)
	}
	correct, err := RepairVerdict(out)
	if err != nil || !correct {
		t.Fatalf("RepairVerdict = %v, %v; want true", correct, err)
	}

	if _, err := RepairVerdict(&structpb.Struct{}); !errors.Is(err, ErrMalformedView) {
		t.Fatalf("RepairVerdict on a plain view err = %v, want ErrMalformedView", err)
	}
}
