package core

import (
	"fmt"

	"github.com/signalsfoundry/dna-repair-sim/model"
)

// EvaluateRepair reports whether proposed restores the reference base at the
// mutated position. Attempts are unlimited and carry no score.
func EvaluateRepair(ref model.Sequence, m model.Mutation, proposed model.Base) (bool, error) {
	if !proposed.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrInvalidBase, string(rune(proposed)))
	}
	if !ref.InRange(m.Position) {
		return false, fmt.Errorf("%w: %d", ErrInvalidPosition, m.Position)
	}
	return proposed == ref[m.Position], nil
}
