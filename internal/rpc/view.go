package rpc

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedView is returned when a response struct is missing a field the
// session view requires.
var ErrMalformedView = errors.New("malformed session view")

// repairVerdictField is only present on SubmitRepair responses.
const repairVerdictField = "last_repair_correct"

// RepairVerdict reads the verdict SubmitRepair attaches to its response.
func RepairVerdict(st *structpb.Struct) (bool, error) {
	v, ok := st.GetFields()[repairVerdictField]
	if !ok {
		return false, fmt.Errorf("%w: missing %s", ErrMalformedView, repairVerdictField)
	}
	return v.GetBoolValue(), nil
}

// ViewToStruct encodes a session snapshot as a protobuf Struct. Positions are
// reported both 0-based ("position") and 1-based ("display_position").
func ViewToStruct(v state.View) (*structpb.Struct, error) {
	bonds := make([]any, len(v.Bonds))
	for i, n := range v.Bonds {
		bonds[i] = n
	}
	fields := map[string]any{
		"id":               v.ID,
		"phase":            v.Phase.String(),
		"reference":        v.Reference.String(),
		"current":          v.Current.String(),
		"complement":       v.Complement.String(),
		"bonds":            bonds,
		"hint":             v.Hint.String(),
		"proposal_correct": v.ProposalCorrect,
		"revealed":         v.Revealed,
		"repaired":         v.Repaired,
		"reset_pending":    v.ResetPending,
		"closed":           v.Closed,
		"mutation":         nil,
		"proposed":         nil,
	}
	if m := v.Mutation; m != nil {
		fields["mutation"] = map[string]any{
			"position":         m.Position,
			"display_position": m.DisplayPosition(),
			"original":         m.Original.String(),
			"replacement":      m.Replacement.String(),
		}
	}
	if v.Proposed != nil {
		fields["proposed"] = v.Proposed.String()
	}
	return structpb.NewStruct(fields)
}

// ViewFromStruct decodes a Struct produced by ViewToStruct.
func ViewFromStruct(st *structpb.Struct) (state.View, error) {
	if st == nil {
		return state.View{}, ErrMalformedView
	}
	f := st.GetFields()
	var v state.View
	var err error

	v.ID = f["id"].GetStringValue()
	if v.Phase, err = state.ParsePhase(f["phase"].GetStringValue()); err != nil {
		return state.View{}, fmt.Errorf("%w: %v", ErrMalformedView, err)
	}
	if v.Reference, err = sequenceField(f, "reference"); err != nil {
		return state.View{}, err
	}
	if v.Current, err = sequenceField(f, "current"); err != nil {
		return state.View{}, err
	}
	if v.Complement, err = sequenceField(f, "complement"); err != nil {
		return state.View{}, err
	}
	for _, b := range f["bonds"].GetListValue().GetValues() {
		v.Bonds = append(v.Bonds, int(b.GetNumberValue()))
	}

	v.Hint = model.Unknown
	if h := f["hint"].GetStringValue(); len(h) == 1 {
		v.Hint = model.Base(h[0])
	}
	v.ProposalCorrect = f["proposal_correct"].GetBoolValue()
	v.Revealed = f["revealed"].GetBoolValue()
	v.Repaired = f["repaired"].GetBoolValue()
	v.ResetPending = f["reset_pending"].GetBoolValue()
	v.Closed = f["closed"].GetBoolValue()

	if ms := f["mutation"].GetStructValue(); ms != nil {
		mf := ms.GetFields()
		orig, err := model.ParseBase(mf["original"].GetStringValue())
		if err != nil {
			return state.View{}, fmt.Errorf("%w: mutation original: %v", ErrMalformedView, err)
		}
		repl, err := model.ParseBase(mf["replacement"].GetStringValue())
		if err != nil {
			return state.View{}, fmt.Errorf("%w: mutation replacement: %v", ErrMalformedView, err)
		}
		v.Mutation = &model.Mutation{
			Position:    int(mf["position"].GetNumberValue()),
			Original:    orig,
			Replacement: repl,
		}
	}
	if p := f["proposed"].GetStringValue(); p != "" {
		b, err := model.ParseBase(p)
		if err != nil {
			return state.View{}, fmt.Errorf("%w: proposed: %v", ErrMalformedView, err)
		}
		v.Proposed = &b
	}
	return v, nil
}

func sequenceField(f map[string]*structpb.Value, key string) (model.Sequence, error) {
	seq, err := model.ParseSequence(f[key].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedView, key, err)
	}
	return seq, nil
}
