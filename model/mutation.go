package model

// Mutation is a single-position substitution on the reference strand.
// Replacement always differs from Original.
type Mutation struct {
	Position    int // zero-based index into the reference
	Original    Base
	Replacement Base
}

// DisplayPosition is the 1-based position shown to users.
func (m Mutation) DisplayPosition() int { return m.Position + 1 }

// Apply returns ref with the substitution in place.
func (m Mutation) Apply(ref Sequence) Sequence {
	return ref.WithSubstitution(m.Position, m.Replacement)
}
