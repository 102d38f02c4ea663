package state

import (
	"github.com/signalsfoundry/dna-repair-sim/core"
	"github.com/signalsfoundry/dna-repair-sim/model"
)

// View is a read-only snapshot the presentation layer renders from. The
// sequences are copies and may be kept by the caller.
type View struct {
	ID    string
	Phase Phase

	Reference  model.Sequence
	Current    model.Sequence
	Complement model.Sequence
	// Bonds holds the hydrogen-bond count of each current base pair.
	Bonds []int

	Mutation *model.Mutation
	Proposed *model.Base
	// ProposalCorrect is true when Proposed matches the original base.
	ProposalCorrect bool
	// Hint is the complement base at the mutated position once revealed,
	// model.Unknown otherwise.
	Hint model.Base

	Revealed     bool
	Repaired     bool
	ResetPending bool
	Closed       bool
}

// View returns a consistent snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.reference.Clone()
	v := View{
		ID:        s.id,
		Phase:     s.phaseLocked(),
		Reference: s.reference.Clone(),
		Hint:      model.Unknown,
		Revealed:  s.revealed,
		Repaired:  s.repaired,
		Closed:    s.closed,
	}
	if s.mutation != nil {
		m := *s.mutation
		v.Mutation = &m
		current = m.Apply(s.reference)
	}
	v.Current = current
	v.Complement = core.ComplementOf(current)
	v.Bonds = make([]int, len(current))
	for i, b := range current {
		v.Bonds[i] = core.HydrogenBonds(b)
	}
	if v.Mutation != nil && s.revealed {
		v.Hint = v.Complement.At(v.Mutation.Position)
	}
	if s.hasProposal {
		p := s.proposed
		v.Proposed = &p
		v.ProposalCorrect = v.Mutation != nil && p == s.reference.At(v.Mutation.Position)
	}
	v.ResetPending = s.resetToken != "" && s.scheduler.Pending(s.resetToken)
	return v
}
