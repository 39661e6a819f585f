package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source for rooms and round countdowns.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}
