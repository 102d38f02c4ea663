// Package console is a line-oriented terminal front end for a mutation-repair
// session. It renders both strands and maps typed commands onto session
// operations, either in-process or through a remote client.
package console

import (
	"context"

	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
)

// Driver performs session operations and returns the resulting view.
// Positions are 0-based. *rpc.Client satisfies it for remote sessions.
type Driver interface {
	IntroduceMutation(ctx context.Context, pos int) (state.View, error)
	RevealComplement(ctx context.Context) (state.View, error)
	SubmitRepair(ctx context.Context, b model.Base) (bool, state.View, error)
	Reset(ctx context.Context) (state.View, error)
	View(ctx context.Context) (state.View, error)
}

// LocalDriver drives an in-process Session.
type LocalDriver struct {
	Session *state.Session
}

var _ Driver = LocalDriver{}

func (d LocalDriver) IntroduceMutation(ctx context.Context, pos int) (state.View, error) {
	if _, err := d.Session.IntroduceMutation(ctx, pos); err != nil {
		return state.View{}, err
	}
	return d.Session.View(), nil
}

func (d LocalDriver) RevealComplement(ctx context.Context) (state.View, error) {
	if err := d.Session.RevealComplement(ctx); err != nil {
		return state.View{}, err
	}
	return d.Session.View(), nil
}

func (d LocalDriver) SubmitRepair(ctx context.Context, b model.Base) (bool, state.View, error) {
	correct, err := d.Session.SubmitRepair(ctx, b)
	if err != nil {
		return false, state.View{}, err
	}
	return correct, d.Session.View(), nil
}

func (d LocalDriver) Reset(ctx context.Context) (state.View, error) {
	if err := d.Session.Reset(ctx); err != nil {
		return state.View{}, err
	}
	return d.Session.View(), nil
}

func (d LocalDriver) View(context.Context) (state.View, error) {
	return d.Session.View(), nil
}
