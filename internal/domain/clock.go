package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies the current calendar year for dates written without one.
// Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Zone is the calendar zone every derived date is built in: mainland China
// time, fixed at UTC+8.
var Zone = time.FixedZone("CST", 8*60*60)
