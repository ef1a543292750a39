package domain

import "fmt"

// Mode selects which scheduling branch and which content rules apply to an item.
type Mode string

// Known review modes.
const (
	ModeMaterialQuestion Mode = "material_question"
	ModeKanji            Mode = "kanji"
)

// Modes lists every known mode in stable order.
var Modes = []Mode{ModeMaterialQuestion, ModeKanji}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeMaterialQuestion, ModeKanji:
		return true
	default:
		return false
	}
}

// RequiresPrintable reports whether exam items of this mode must carry all
// display fields before they can be assigned to an exam.
func (m Mode) RequiresPrintable() bool {
	return m == ModeKanji
}

// RequiresContent reports whether an exam of this mode must contain at least one item.
func (m Mode) RequiresContent() bool {
	return m == ModeKanji
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}
