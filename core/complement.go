package core

import "github.com/signalsfoundry/dna-repair-sim/model"

var (
	pairing [256]model.Base
	bonds   [256]int
)

func init() {
	pairing['A'] = model.T
	pairing['T'] = model.A
	pairing['C'] = model.G
	pairing['G'] = model.C

	bonds['A'], bonds['T'] = 2, 2
	bonds['C'], bonds['G'] = 3, 3
}

// Complement returns the Watson-Crick partner of b, or model.Unknown.
func Complement(b model.Base) model.Base {
	if c := pairing[b]; c != 0 {
		return c
	}
	return model.Unknown
}

// ComplementOf pairs every base of seq independently. It never fails; an
// unmapped symbol pairs with model.Unknown.
func ComplementOf(seq model.Sequence) model.Sequence {
	if seq == nil {
		return nil
	}
	out := make(model.Sequence, len(seq))
	for i, b := range seq {
		out[i] = Complement(b)
	}
	return out
}

// HydrogenBonds is the number of hydrogen bonds b forms with its partner:
// 2 for A/T, 3 for C/G, 0 for anything else.
func HydrogenBonds(b model.Base) int {
	return bonds[b]
}
