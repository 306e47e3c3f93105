// SPDX-License-Identifier: Apache-2.0

// Package sequencer schedules traffic toward the heat pump. The protocol
// tolerates only one outstanding command: after a query goes out, nothing
// else may be sent until a response arrives or the response timeout expires.
// Setting commands take priority over queries, and writes to persistent
// parameters are rate limited to protect the controller's EEPROM.
package sequencer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

const (
	// TickInterval is the scheduler's polling period.
	TickInterval = 500 * time.Millisecond
	// QueryInterval separates periodic telemetry queries.
	QueryInterval = 30 * time.Second
	// ResponseTimeout bounds the wait for a reply to an outstanding query.
	ResponseTimeout = 2 * time.Second
	// MaxWritesPerHour caps accepted setting writes per parameter.
	MaxWritesPerHour = 10

	rateWindow = time.Hour
)

// Sender transmits a checksum-free command frame.
type Sender interface {
	Send(frame []byte) error
}

// entry is a queued setting command with the parameter names it writes, for
// rate-limit accounting.
type entry struct {
	frame  []byte
	params []string
}

// Sequencer runs the command schedule. Priorities each tick:
//
//  1. expire the response-timeout lock
//  2. queued setting commands (fire and forget, no response expected)
//  3. a pending extra query armed by the previous standard query
//  4. the periodic standard query, which arms the extra query
//
// The first standard query goes out on the first tick, with no startup
// delay.
type Sequencer struct {
	sender Sender

	queueMu sync.Mutex
	queue   []entry

	mu           sync.Mutex // guards the fields below
	waiting      bool
	pendingExtra bool
	lastSend     time.Time
	lastQuery    time.Time
	hasQueried   bool

	limiter *writeLimiter
	now     func() time.Time // swapped in tests

	done chan struct{}
}

// New creates a sequencer over the sender. Call Start to begin scheduling.
func New(sender Sender) *Sequencer {
	return &Sequencer{
		sender:  sender,
		limiter: newWriteLimiter(rateWindow, MaxWritesPerHour),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Enqueue appends a setting command to the FIFO. params names every
// parameter the frame writes; the rate limiter checks each before the frame
// is sent. The call never blocks and never fails: a rate-limited frame is
// logged and dropped at send time, and the caller re-issues later if the
// desired state still differs.
func (s *Sequencer) Enqueue(frame []byte, params ...string) {
	s.queueMu.Lock()
	s.queue = append(s.queue, entry{frame: frame, params: params})
	n := len(s.queue)
	s.queueMu.Unlock()
	log.Printf("[sequencer] setting command queued (queue size %d)", n)
}

// ResponseReceived unlocks the scheduler after any validated frame arrives.
// Every received frame counts as the response to the outstanding query.
func (s *Sequencer) ResponseReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting {
		s.waiting = false
	}
}

// Start launches the scheduling loop. It returns immediately; the loop runs
// until the context is cancelled.
func (s *Sequencer) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()

		s.tick() // first query goes out immediately
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Done is closed once the scheduling loop has exited.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// tick runs one scheduling decision. It sends at most one command.
func (s *Sequencer) tick() {
	now := s.now()

	s.mu.Lock()
	if s.waiting && now.Sub(s.lastSend) >= ResponseTimeout {
		log.Printf("[sequencer] response timeout after %s", now.Sub(s.lastSend).Round(time.Millisecond))
		s.waiting = false
	}
	if s.waiting {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// Priority 1: queued setting commands. Rate-limited entries are dropped
	// and the next entry considered in the same tick.
	for {
		e, ok := s.popQueue()
		if !ok {
			break
		}
		if limited := s.limitedParams(e.params, now); len(limited) > 0 {
			log.Printf("[sequencer] write limit reached for %v, dropping setting command", limited)
			continue
		}
		s.sendSetting(e, now)
		return
	}

	// Priority 2: the extra query armed by the previous standard query.
	s.mu.Lock()
	sendExtra := s.pendingExtra
	if sendExtra {
		s.pendingExtra = false
	}
	s.mu.Unlock()
	if sendExtra {
		s.sendQuery(aquarea.NewExtraQueryCommand(), "extra", now)
		return
	}

	// Priority 3: the periodic standard query. The extra query is armed
	// only once the standard query actually went out; a failed send leaves
	// the standard query due for retry on the next tick.
	s.mu.Lock()
	due := !s.hasQueried || now.Sub(s.lastQuery) >= QueryInterval
	s.mu.Unlock()
	if due && s.sendQuery(aquarea.NewQueryCommand(), "standard", now) {
		s.mu.Lock()
		s.pendingExtra = true
		s.mu.Unlock()
	}
}

func (s *Sequencer) popQueue() (entry, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return entry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// limitedParams returns the parameters whose hourly budget is exhausted.
func (s *Sequencer) limitedParams(params []string, now time.Time) []string {
	var limited []string
	for _, p := range params {
		if !s.limiter.allow(p, now) {
			limited = append(limited, p)
		}
	}
	return limited
}

// sendSetting transmits a setting command. No response is expected, so the
// scheduler stays unlocked either way.
func (s *Sequencer) sendSetting(e entry, now time.Time) {
	if err := s.sender.Send(e.frame); err != nil {
		log.Printf("[sequencer] failed to send setting command: %v", err)
		s.mu.Lock()
		s.waiting = false
		s.mu.Unlock()
		return
	}

	for _, p := range e.params {
		s.limiter.record(p, now)
	}
	s.mu.Lock()
	s.lastSend = now
	s.waiting = false
	s.mu.Unlock()
	log.Printf("[sequencer] setting command sent (%v)", e.params)
}

// sendQuery transmits a query and locks the scheduler until the response or
// the timeout. It reports whether the frame reached the transport.
func (s *Sequencer) sendQuery(frame []byte, kind string, now time.Time) bool {
	if err := s.sender.Send(frame); err != nil {
		log.Printf("[sequencer] failed to send %s query: %v", kind, err)
		s.mu.Lock()
		s.waiting = false
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	s.lastSend = now
	s.lastQuery = now
	s.hasQueried = true
	s.waiting = true
	s.mu.Unlock()
	return true
}
