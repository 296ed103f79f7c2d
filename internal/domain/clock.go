package domain

import "github.com/jonboulle/clockwork"

// clock stamps conversion metadata. Tests freeze it via SetClock so
// lastUpdated and backup file names are deterministic.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by Convert. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
