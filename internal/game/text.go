// Package game provides puzzle text integrity helpers and game id
// classification for decodey sessions.
package game

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// BlockGlyph marks an unrevealed position in display text.
const BlockGlyph = '█'

// ErrLengthMismatch reports an encrypted/display parity violation.
// Text pairs that do not line up rune-for-rune are never displayed.
var ErrLengthMismatch = errors.New("game: encrypted/display length mismatch")

// CheckParity verifies that encrypted and display text line up
// rune-for-rune.
func CheckParity(encrypted, display string) error {
	e := len([]rune(encrypted))
	d := len([]rune(display))
	if e != d {
		return fmt.Errorf("%w: encrypted=%d display=%d", ErrLengthMismatch, e, d)
	}
	return nil
}

// FilterHardcore strips whitespace and punctuation from puzzle text,
// keeping letters and the block glyph. Hardcore sessions store only the
// filtered form.
func FilterHardcore(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || r == BlockGlyph {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeTexts validates an encrypted/display pair and applies hardcore
// filtering when requested. Both the raw and the filtered forms must keep
// parity; a pair that loses alignment under filtering is rejected.
func NormalizeTexts(encrypted, display string, hardcore bool) (string, string, error) {
	if err := CheckParity(encrypted, display); err != nil {
		return "", "", err
	}
	if !hardcore {
		return encrypted, display, nil
	}
	fe := FilterHardcore(encrypted)
	fd := FilterHardcore(display)
	if err := CheckParity(fe, fd); err != nil {
		return "", "", err
	}
	return fe, fd, nil
}
