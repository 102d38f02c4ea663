package core

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/dna-repair-sim/model"
)

// ErrInvalidPosition indicates a mutation position outside the reference.
var ErrInvalidPosition = errors.New("invalid position")

// RandomSource yields integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// NewSeededSource returns a deterministic source for reproducible runs.
func NewSeededSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// FixedSource replays scripted choices, cycling when exhausted. Each value
// is reduced modulo n. An empty script always yields 0.
type FixedSource struct {
	mu     sync.Mutex
	picks  []int
	cursor int
}

// NewFixedSource builds a FixedSource from the given picks.
func NewFixedSource(picks ...int) *FixedSource {
	return &FixedSource{picks: picks}
}

func (f *FixedSource) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.picks) == 0 || n <= 0 {
		return 0
	}
	v := f.picks[f.cursor%len(f.picks)]
	f.cursor++
	if v < 0 {
		v = -v
	}
	return v % n
}

// MutationGenerator draws single-base substitutions.
type MutationGenerator struct {
	mu  sync.Mutex
	src RandomSource
}

// NewMutationGenerator wraps src; a nil src falls back to a time-seeded one.
func NewMutationGenerator(src RandomSource) *MutationGenerator {
	if src == nil {
		src = NewSeededSource(time.Now().UnixNano())
	}
	return &MutationGenerator{src: src}
}

// Candidates returns the alphabet minus original, in alphabet order. An
// unmapped original leaves all four bases as candidates.
func Candidates(original model.Base) []model.Base {
	out := make([]model.Base, 0, len(model.Alphabet))
	for _, b := range model.Alphabet {
		if b != original {
			out = append(out, b)
		}
	}
	return out
}

// Generate picks a replacement for ref[pos] uniformly among the other bases.
func (g *MutationGenerator) Generate(ref model.Sequence, pos int) (model.Mutation, error) {
	if !ref.InRange(pos) {
		return model.Mutation{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidPosition, pos, ref.Len())
	}
	original := ref[pos]
	choices := Candidates(original)

	g.mu.Lock()
	idx := g.src.Intn(len(choices))
	g.mu.Unlock()

	if idx < 0 || idx >= len(choices) {
		idx = 0
	}
	return model.Mutation{
		Position:    pos,
		Original:    original,
		Replacement: choices[idx],
	}, nil
}
