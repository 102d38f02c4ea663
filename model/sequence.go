package model

import (
	"unicode"
)

// Sequence is one strand, read 5' to 3'.
//
// Symbols outside the alphabet are kept as-is so the complement can surface
// them as Unknown instead of rejecting the strand.
type Sequence []Base

// ParseSequence removes whitespace and quotes and uppercases the rest.
func ParseSequence(raw string) (Sequence, error) {
	out := make(Sequence, 0, len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '\'' || r == '"' {
			continue
		}
		r = unicode.ToUpper(r)
		if r > unicode.MaxASCII {
			out = append(out, Unknown)
			continue
		}
		out = append(out, Base(r))
	}
	if len(out) == 0 {
		return nil, ErrEmptySequence
	}
	return out, nil
}

// MustParseSequence is ParseSequence for literals known to be valid.
func MustParseSequence(raw string) Sequence {
	s, err := ParseSequence(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Sequence) String() string {
	b := make([]byte, len(s))
	for i, base := range s {
		b[i] = byte(base)
	}
	return string(b)
}

func (s Sequence) Len() int { return len(s) }

// InRange reports whether i indexes a base of s.
func (s Sequence) InRange(i int) bool { return i >= 0 && i < len(s) }

// At returns the base at i, or Unknown when i is out of range.
func (s Sequence) At(i int) Base {
	if !s.InRange(i) {
		return Unknown
	}
	return s[i]
}

// Valid reports whether every base is in the alphabet.
func (s Sequence) Valid() bool {
	for _, b := range s {
		if !b.Valid() {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// WithSubstitution returns a copy of s with b at position i. The receiver is
// left untouched; an out-of-range i yields a plain copy.
func (s Sequence) WithSubstitution(i int, b Base) Sequence {
	out := s.Clone()
	if s.InRange(i) {
		out[i] = b
	}
	return out
}

// Equal reports whether both strands hold the same bases.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
