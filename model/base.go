package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Base is a single nucleotide symbol.
type Base byte

const (
	A Base = 'A'
	T Base = 'T'
	C Base = 'C'
	G Base = 'G'

	// Unknown marks a symbol outside the A/T/C/G alphabet.
	Unknown Base = '?'
)

// Alphabet lists the valid bases in the order mutations are drawn from.
var Alphabet = [...]Base{A, T, C, G}

var (
	// ErrInvalidBase indicates a symbol outside the A/T/C/G alphabet.
	ErrInvalidBase = errors.New("invalid base")
	// ErrEmptySequence indicates a sequence with no bases after normalisation.
	ErrEmptySequence = errors.New("empty sequence")
)

// Valid reports whether b is one of A, T, C or G.
func (b Base) Valid() bool {
	switch b {
	case A, T, C, G:
		return true
	}
	return false
}

func (b Base) String() string { return string(rune(b)) }

// ParseBase accepts a single case-insensitive base letter, ignoring
// surrounding whitespace.
func ParseBase(s string) (Base, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return Unknown, fmt.Errorf("%w: %q", ErrInvalidBase, s)
	}
	b := Base(unicode.ToUpper(rune(s[0])))
	if !b.Valid() {
		return Unknown, fmt.Errorf("%w: %q; allowed: A T C G", ErrInvalidBase, s)
	}
	return b, nil
}
