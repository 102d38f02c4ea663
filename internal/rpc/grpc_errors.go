package rpc

import (
	"errors"
	"strings"

	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatusError maps session errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, state.ErrInvalidPosition),
		errors.Is(err, state.ErrInvalidBase),
		errors.Is(err, model.ErrEmptySequence):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, state.ErrNoActiveMutation),
		errors.Is(err, state.ErrMutationActive),
		errors.Is(err, state.ErrAlreadyRepaired):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, state.ErrSessionClosed):
		return status.Error(codes.Unavailable, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// remoteSentinels are the session errors a client can recover from a status,
// keyed by the code ToStatusError assigns them. Order matters only where one
// message contains another.
var remoteSentinels = []struct {
	code     codes.Code
	sentinel error
}{
	{codes.InvalidArgument, state.ErrInvalidPosition},
	{codes.InvalidArgument, state.ErrInvalidBase},
	{codes.InvalidArgument, model.ErrEmptySequence},
	{codes.FailedPrecondition, state.ErrNoActiveMutation},
	{codes.FailedPrecondition, state.ErrMutationActive},
	{codes.FailedPrecondition, state.ErrAlreadyRepaired},
	{codes.Unavailable, state.ErrSessionClosed},
}

// statusError carries a server status back to callers while still matching
// the session sentinel it was produced from.
type statusError struct {
	st       *status.Status
	sentinel error
}

func (e *statusError) Error() string              { return e.st.Message() }
func (e *statusError) Unwrap() error              { return e.sentinel }
func (e *statusError) GRPCStatus() *status.Status { return e.st }

// FromStatusError is the client-side inverse of ToStatusError: errors whose
// code and message match a session sentinel are returned wrapping it, so
// errors.Is works across the wire. Other errors pass through unchanged.
func FromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	for _, rs := range remoteSentinels {
		if st.Code() == rs.code && strings.Contains(msg, rs.sentinel.Error()) {
			return &statusError{st: st, sentinel: rs.sentinel}
		}
	}
	return err
}
