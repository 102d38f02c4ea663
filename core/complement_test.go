package core

import (
	"testing"

	"github.com/signalsfoundry/dna-repair-sim/model"
)

func TestComplementOfPairsEachBase(t *testing.T) {
	got := ComplementOf(model.MustParseSequence("GTCGTAGCTA"))
	if got.String() != "CAGCATCGAT" {
		t.Fatalf("ComplementOf(GTCGTAGCTA) = %s, want CAGCATCGAT", got)
	}
}

func TestComplementPairingTable(t *testing.T) {
	want := map[model.Base]model.Base{
		model.A: model.T,
		model.T: model.A,
		model.C: model.G,
		model.G: model.C,
	}
	for in, out := range want {
		if got := Complement(in); got != out {
			t.Errorf("Complement(%s) = %s, want %s", in, got, out)
		}
	}
}

func TestComplementOfIsInvolution(t *testing.T) {
	seqs := []string{"A", "ATCGTAGCTA", "GGGGCCCC", "TTAACCGGATCG"}
	for _, raw := range seqs {
		s := model.MustParseSequence(raw)
		if twice := ComplementOf(ComplementOf(s)); !twice.Equal(s) {
			t.Errorf("ComplementOf twice on %s = %s", raw, twice)
		}
	}
}

func TestComplementOfInvolutionExhaustiveShort(t *testing.T) {
	// every strand of length 4 over the alphabet
	n := len(model.Alphabet)
	for i := 0; i < n*n*n*n; i++ {
		s := make(model.Sequence, 4)
		v := i
		for j := range s {
			s[j] = model.Alphabet[v%n]
			v /= n
		}
		if twice := ComplementOf(ComplementOf(s)); !twice.Equal(s) {
			t.Fatalf("involution failed for %s: got %s", s, twice)
		}
	}
}

func TestComplementOfUnknownSymbol(t *testing.T) {
	got := ComplementOf(model.MustParseSequence("ANXT"))
	if got.String() != "T??A" {
		t.Fatalf("ComplementOf(ANXT) = %s, want T??A", got)
	}
	if got.Len() != 4 {
		t.Fatalf("length changed: %d", got.Len())
	}
}

func TestComplementOfEmpty(t *testing.T) {
	if ComplementOf(nil) != nil {
		t.Errorf("ComplementOf(nil) should return nil")
	}
	if out := ComplementOf(model.Sequence{}); len(out) != 0 {
		t.Errorf("ComplementOf(empty) length = %d, want 0", len(out))
	}
}

func TestHydrogenBonds(t *testing.T) {
	cases := map[model.Base]int{model.A: 2, model.T: 2, model.C: 3, model.G: 3, model.Unknown: 0, 'N': 0}
	for b, want := range cases {
		if got := HydrogenBonds(b); got != want {
			t.Errorf("HydrogenBonds(%s) = %d, want %d", b, got, want)
		}
	}
}
