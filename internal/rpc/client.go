package rpc

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote SessionService and decodes its views. Errors carry
// the server's status and still match the session sentinels with errors.Is.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// IntroduceMutation mutates the remote reference at a 0-based position.
// Positions that do not fit the wire's int32 are rejected locally.
func (c *Client) IntroduceMutation(ctx context.Context, pos int) (state.View, error) {
	if pos < math.MinInt32 || pos > math.MaxInt32 {
		return state.View{}, fmt.Errorf("%w: position %d", state.ErrInvalidPosition, pos)
	}
	return c.call(ctx, MethodIntroduceMutation, wrapperspb.Int32(int32(pos)))
}

// RevealComplement reveals the remote complementary strand.
func (c *Client) RevealComplement(ctx context.Context) (state.View, error) {
	return c.call(ctx, MethodRevealComplement, &emptypb.Empty{})
}

// SubmitRepair proposes b and reports whether it restored the original base.
// The verdict comes from the submission itself, not from the returned view,
// which may already reflect a later reset.
func (c *Client) SubmitRepair(ctx context.Context, b model.Base) (bool, state.View, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(MethodSubmitRepair), wrapperspb.String(b.String()), out); err != nil {
		return false, state.View{}, FromStatusError(err)
	}
	correct, err := RepairVerdict(out)
	if err != nil {
		return false, state.View{}, err
	}
	v, err := ViewFromStruct(out)
	if err != nil {
		return false, state.View{}, err
	}
	return correct, v, nil
}

// Reset returns the remote session to Clean.
func (c *Client) Reset(ctx context.Context) (state.View, error) {
	return c.call(ctx, MethodReset, &emptypb.Empty{})
}

// View fetches the remote session without changing it.
func (c *Client) View(ctx context.Context) (state.View, error) {
	return c.call(ctx, MethodGetSession, &emptypb.Empty{})
}

func (c *Client) call(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (state.View, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return state.View{}, FromStatusError(err)
	}
	return ViewFromStruct(out)
}
