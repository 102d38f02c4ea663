package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/dna-repair-sim/model"
)

func TestGenerateForcedPick(t *testing.T) {
	ref := model.MustParseSequence("ATCGTAGCTA")
	// candidates for A are T, C, G; index 2 selects G
	gen := NewMutationGenerator(NewFixedSource(2))

	m, err := gen.Generate(ref, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if m.Position != 0 || m.Original != model.A || m.Replacement != model.G {
		t.Fatalf("unexpected mutation: %+v", m)
	}
	if got := m.Apply(ref).String(); got != "GTCGTAGCTA" {
		t.Fatalf("current sequence = %s, want GTCGTAGCTA", got)
	}
}

func TestGenerateAlwaysDiffers(t *testing.T) {
	ref := model.MustParseSequence("ATCGTAGCTA")
	gen := NewMutationGenerator(NewSeededSource(42))
	for round := 0; round < 50; round++ {
		for pos := range ref {
			m, err := gen.Generate(ref, pos)
			if err != nil {
				t.Fatalf("Generate(%d): %v", pos, err)
			}
			if m.Replacement == ref[pos] {
				t.Fatalf("replacement equals original at %d: %s", pos, m.Replacement)
			}
			if !m.Replacement.Valid() {
				t.Fatalf("replacement %q outside alphabet", m.Replacement)
			}
		}
	}
}

func TestGenerateCoversEveryCandidate(t *testing.T) {
	ref := model.MustParseSequence("C")
	seen := map[model.Base]bool{}
	gen := NewMutationGenerator(NewFixedSource(0, 1, 2))
	for i := 0; i < 3; i++ {
		m, err := gen.Generate(ref, 0)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		seen[m.Replacement] = true
	}
	for _, b := range []model.Base{model.A, model.T, model.G} {
		if !seen[b] {
			t.Errorf("candidate %s never drawn", b)
		}
	}
	if seen[model.C] {
		t.Errorf("original base C drawn as replacement")
	}
}

func TestGenerateUnmappedOriginalUsesWholeAlphabet(t *testing.T) {
	if got := len(Candidates('N')); got != 4 {
		t.Fatalf("Candidates(N) = %d bases, want 4", got)
	}
	if got := len(Candidates(model.A)); got != 3 {
		t.Fatalf("Candidates(A) = %d bases, want 3", got)
	}
}

func TestGenerateInvalidPosition(t *testing.T) {
	ref := model.MustParseSequence("ATCG")
	gen := NewMutationGenerator(NewFixedSource(0))
	for _, pos := range []int{-1, 4, 100} {
		if _, err := gen.Generate(ref, pos); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("Generate(%d) err = %v, want ErrInvalidPosition", pos, err)
		}
	}
}

func TestFixedSourceCyclesAndClamps(t *testing.T) {
	src := NewFixedSource(1, 7)
	if got := src.Intn(3); got != 1 {
		t.Fatalf("first pick = %d, want 1", got)
	}
	if got := src.Intn(3); got != 1 {
		t.Fatalf("second pick = %d, want 7 mod 3 = 1", got)
	}
	if got := src.Intn(3); got != 1 {
		t.Fatalf("cycled pick = %d, want 1", got)
	}
	if got := NewFixedSource().Intn(3); got != 0 {
		t.Fatalf("empty script pick = %d, want 0", got)
	}
}
