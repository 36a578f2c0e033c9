package server

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// TurnClock enforces the per-turn move limit. Every arm delivers exactly one
// fire stamped with the token it was armed for; the session discards fires
// whose token no longer matches, so an arm is superseded simply by arming
// the next turn. Cancelling an in-flight timer exactly is not something we
// rely on.
type TurnClock struct {
	clock    clockwork.Clock
	duration time.Duration
}

func NewTurnClock(clock clockwork.Clock, duration time.Duration) *TurnClock {
	return &TurnClock{
		clock:    clock,
		duration: duration,
	}
}

func (t *TurnClock) Arm(ctx context.Context, token uint64, fire func(token uint64)) {
	timer := t.clock.NewTimer(t.duration)

	go func() {
		select {
		case <-timer.Chan():
			fire(token)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
		}
	}()
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
