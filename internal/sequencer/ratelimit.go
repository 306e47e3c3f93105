// SPDX-License-Identifier: Apache-2.0

package sequencer

import "time"

// writeLimiter tracks accepted setting writes per parameter name over a
// rolling window. The heat pump controller persists settings to EEPROM, so
// write volume is capped to protect its endurance.
//
// The limiter is touched only from the tick loop and needs no locking.
type writeLimiter struct {
	window  time.Duration
	maxPer  int
	history map[string][]time.Time
}

func newWriteLimiter(window time.Duration, maxPer int) *writeLimiter {
	return &writeLimiter{
		window:  window,
		maxPer:  maxPer,
		history: make(map[string][]time.Time),
	}
}

// allow prunes entries older than the window and reports whether another
// write to the parameter fits the budget. Rejected attempts are not recorded.
func (l *writeLimiter) allow(param string, now time.Time) bool {
	cutoff := now.Add(-l.window)
	entries := l.history[param]

	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.history[param] = kept

	return len(kept) < l.maxPer
}

// record appends an accepted write for the parameter.
func (l *writeLimiter) record(param string, now time.Time) {
	l.history[param] = append(l.history[param], now)
}

// count returns the number of writes to the parameter inside the window.
func (l *writeLimiter) count(param string, now time.Time) int {
	cutoff := now.Add(-l.window)
	n := 0
	for _, t := range l.history[param] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
