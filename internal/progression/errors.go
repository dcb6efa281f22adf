package progression

import (
	"errors"
	"fmt"
)

// ErrInBattle gates experience and allocation mutations while a character
// is locked in an active battle. Advisory: callers must tolerate a battle
// starting between the check and the write.
var ErrInBattle = errors.New("character is in an active battle")

// MissingDataError is a precondition violation: a required field
// (archetype, rarity, adherence) is absent. Callers surface it as a hard
// failure rather than retrying with fallback values.
type MissingDataError struct {
	Field       string
	CharacterID int64
}

func (e MissingDataError) Error() string {
	return fmt.Sprintf("character %d is missing required %s", e.CharacterID, e.Field)
}

// IntegrityError marks a violated invariant, such as an allocation vector
// whose sum mismatches the pending budget. Never silently coerced.
type IntegrityError struct {
	Reason string
}

func (e IntegrityError) Error() string {
	return "integrity violation: " + e.Reason
}
