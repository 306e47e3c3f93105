// SPDX-License-Identifier: Apache-2.0

// Package bridge assembles the protocol stack: the serial transceiver feeds
// validated frames to the decoder and the command sequencer, decoded
// messages fan out to subscribers, and setting requests are encoded and
// queued for transmission.
package bridge

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/thermalworks/aquabridge/internal/sequencer"
	"github.com/thermalworks/aquabridge/internal/uart"
	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// Bridge owns the full pipeline between an open serial connection and the
// rest of the application.
type Bridge struct {
	proto *aquarea.Protocol
	tr    *uart.Transceiver
	seq   *sequencer.Sequencer

	mu   sync.Mutex
	subs []func(aquarea.Message)
}

// New builds a bridge over an open connection. limits carries per-field
// maximum overrides from configuration and may be nil.
func New(conn io.ReadWriteCloser, limits map[string]float64) *Bridge {
	b := &Bridge{proto: aquarea.NewProtocol(limits)}
	b.tr = uart.NewTransceiver(conn, b.onFrame)
	b.seq = sequencer.New(b.tr)
	return b
}

// Start launches the read loop and the command schedule. The first
// telemetry query goes out immediately.
func (b *Bridge) Start(ctx context.Context) {
	b.tr.Start(ctx)
	b.seq.Start(ctx)
}

// Subscribe registers a callback for every decoded message. Callbacks run
// on the read goroutine and must not block; register before Start.
func (b *Bridge) Subscribe(fn func(aquarea.Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Set encodes a single-field setting command and queues it for
// transmission. Validation failures (unknown field, not writable, out of
// bounds) surface immediately as typed errors; a queued command may still be
// dropped later by the write-rate limiter.
func (b *Bridge) Set(field string, value float64) error {
	frame, err := b.proto.Standard.Encode(aquarea.Message{
		Fields: map[string]interface{}{field: value},
	}, nil)
	if err != nil {
		return err
	}
	b.seq.Enqueue(frame, field)
	return nil
}

// Stats returns the transceiver's stream counters.
func (b *Bridge) Stats() aquarea.FrameStats {
	return b.tr.Stats()
}

// Close shuts the serial connection down.
func (b *Bridge) Close() error {
	return b.tr.Close()
}

// onFrame handles every validated frame from the wire. Any frame counts as
// the response to an outstanding query; frames that fail to decode are
// logged and dropped without disturbing the schedule.
func (b *Bridge) onFrame(frame []byte) {
	b.seq.ResponseReceived()

	msg, err := b.proto.Decode(frame)
	if err != nil {
		log.Printf("[bridge] dropping frame: %v", err)
		return
	}

	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, fn := range subs {
		fn(msg)
	}
}
