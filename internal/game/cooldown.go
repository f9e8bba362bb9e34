package game

import "time"

const DefaultCooldownWindow = 24 * time.Hour

// CooldownGate decides when a pair may start a new match after finishing one.
type CooldownGate struct {
	Window time.Duration
	// MidnightReset opens the gate at the first midnight in Location after
	// completion when that comes before Window has elapsed.
	MidnightReset bool
	Location      *time.Location
}

func NewCooldownGate(window time.Duration) CooldownGate {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return CooldownGate{Window: window, Location: time.UTC}
}

// RetryAt returns the earliest time a new match may start.
func (g CooldownGate) RetryAt(completedAt time.Time) time.Time {
	retryAt := completedAt.Add(g.Window)
	if !g.MidnightReset {
		return retryAt
	}
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	local := completedAt.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	if midnight.Before(retryAt) {
		return midnight
	}
	return retryAt
}

// Check returns a *CooldownError while the gate is closed. A nil lastCompleted
// means the pair has never finished a match.
func (g CooldownGate) Check(lastCompleted *time.Time, now time.Time) error {
	if lastCompleted == nil {
		return nil
	}
	retryAt := g.RetryAt(*lastCompleted)
	if now.Before(retryAt) {
		return &CooldownError{RetryAt: retryAt}
	}
	return nil
}
