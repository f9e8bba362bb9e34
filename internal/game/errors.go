package game

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrPairNotFound      = errors.New("pair not found")
	ErrNotPairMember     = errors.New("player is not a member of this pair")
	ErrNotMatchPlayer    = errors.New("player is not part of this match")
	ErrTurnConflict      = errors.New("turn conflict: not the player's turn or match is not active")
	ErrNoHintsRemaining  = errors.New("no hints remaining")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrNoPuzzleAvailable = errors.New("no puzzle available for this pair")
	ErrPuzzleMismatch    = errors.New("puzzle does not belong to this match")
	ErrVersionConflict   = errors.New("match was modified concurrently")
	ErrEmptySubmission   = errors.New("submission has no placements")
)

// CooldownError reports when a pair may start its next match.
type CooldownError struct {
	RetryAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry at %s", ErrCooldownActive, e.RetryAt.Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
