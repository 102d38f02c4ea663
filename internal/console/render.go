package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
)

const welcome = `Welcome to the DNA Repair Simulation

This tool lets you explore how DNA mutations occur and how the cell repairs
them using complementary base pairing. Introduce a mutation, reveal the
complementary strand, and try to repair it using your knowledge of DNA
structure.
`

const howTo = `How to use:
  1. mutate N   introduce a mutation at position N (1-based)
  2. reveal     show the complementary strand clearly
  3. use the complementary base to identify the original base
  4. repair B   submit base B (A, T, C or G) to repair the mutation
Other commands: show, reset, help, quit

Base pairing rules: A <-> T (2 bonds), C <-> G (3 bonds)
`

// hidden masks complement bases that have not been revealed yet.
const hidden = '.'

// Render writes the strands and status for v.
func Render(w io.Writer, v state.View) {
	n := v.Current.Len()
	mutated := -1
	if v.Mutation != nil {
		mutated = v.Mutation.Position
	}
	masked := v.Mutation != nil && !v.Revealed

	var pos, top, bonds, bottom, marker strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&pos, "%3d", i+1)
		fmt.Fprintf(&top, "%3c", byte(v.Current.At(i)))
		fmt.Fprintf(&bonds, "%3s", bondGlyph(v.Bonds, i))
		if masked {
			fmt.Fprintf(&bottom, "%3c", hidden)
		} else {
			fmt.Fprintf(&bottom, "%3c", byte(v.Complement.At(i)))
		}
		if i == mutated {
			marker.WriteString("  ^")
		} else {
			marker.WriteString("   ")
		}
	}

	fmt.Fprintf(w, "          %s\n", pos.String())
	fmt.Fprintf(w, "5' -> 3'  %s\n", top.String())
	fmt.Fprintf(w, "          %s\n", bonds.String())
	fmt.Fprintf(w, "3' <- 5'  %s\n", bottom.String())
	if mutated >= 0 {
		fmt.Fprintf(w, "          %s\n", strings.TrimRight(marker.String(), " "))
	}

	switch v.Phase {
	case state.PhaseClean:
		fmt.Fprintln(w, "No mutation. Use 'mutate N' to introduce one.")
	case state.PhaseMutated:
		m := v.Mutation
		fmt.Fprintf(w, "Mutation detected at position %d: original base %s -> mutated to %s\n",
			m.DisplayPosition(), m.Original, m.Replacement)
		fmt.Fprintln(w, "Use 'reveal' to show the complementary strand.")
	case state.PhaseRevealing:
		m := v.Mutation
		fmt.Fprintf(w, "Mutation detected at position %d: original base %s -> mutated to %s\n",
			m.DisplayPosition(), m.Original, m.Replacement)
		fmt.Fprintf(w, "Based on the complementary strand showing %s, which base should replace the mutation?\n", v.Hint)
	case state.PhaseRepaired:
		fmt.Fprintln(w, "Repair successful! The DNA has been restored to its original sequence.")
	}
	if v.Proposed != nil && !v.ProposalCorrect {
		fmt.Fprintf(w, "%s is incorrect. Try again.\n", *v.Proposed)
	}
}

func bondGlyph(bonds []int, i int) string {
	if i >= len(bonds) {
		return ""
	}
	switch bonds[i] {
	case 2:
		return "="
	case 3:
		return "≡"
	default:
		return model.Unknown.String()
	}
}
