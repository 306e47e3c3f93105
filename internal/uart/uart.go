// SPDX-License-Identifier: Apache-2.0

// Package uart owns the serial link to the heat pump: opening the port,
// pumping received bytes through the framer, and writing checksummed
// command frames.
package uart

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// readTimeout bounds a single blocking read so the loop can observe
// cancellation between chunks.
const readTimeout = 500 * time.Millisecond

// Open opens the serial port at 8N1, the heat pump's fixed framing.
func Open(portName string, baudRate int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return port, nil
}

// Transceiver pumps bytes between the serial connection and the rest of the
// system. A background goroutine reads the stream, recovers validated frames
// and hands each to the onFrame callback; Send writes a command frame with
// its checksum appended. The callback runs on the read goroutine and must
// not block.
type Transceiver struct {
	conn    io.ReadWriteCloser
	onFrame func([]byte)

	mu     sync.Mutex // guards framer across Start/Stats
	framer *aquarea.Framer

	writeMu sync.Mutex
	done    chan struct{}
}

// NewTransceiver wraps an open connection. onFrame receives every validated
// frame and may be nil.
func NewTransceiver(conn io.ReadWriteCloser, onFrame func([]byte)) *Transceiver {
	return &Transceiver{
		conn:    conn,
		onFrame: onFrame,
		framer:  aquarea.NewFramer(),
		done:    make(chan struct{}),
	}
}

// Start launches the background read loop. It returns immediately; the loop
// runs until the context is cancelled or the connection fails.
func (t *Transceiver) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

func (t *Transceiver) readLoop(ctx context.Context) {
	defer close(t.done)

	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := t.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return
			}
			log.Printf("[uart] read error: %v", err)
			return
		}
		if n == 0 {
			// Read timeout expired with no data; loop to recheck the context.
			continue
		}

		t.mu.Lock()
		var frames [][]byte
		for _, b := range buf[:n] {
			if frame := t.framer.Feed(b); frame != nil {
				frames = append(frames, frame)
			}
		}
		t.mu.Unlock()

		if t.onFrame != nil {
			for _, frame := range frames {
				t.onFrame(frame)
			}
		}
	}
}

// Send appends the checksum to the command buffer and writes the complete
// frame. Concurrent senders are serialized so frames never interleave on the
// wire.
func (t *Transceiver) Send(frame []byte) error {
	wire := make([]byte, 0, len(frame)+1)
	wire = append(wire, frame...)
	wire = append(wire, aquarea.Checksum(frame))

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.conn.Write(wire); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the stream counters.
func (t *Transceiver) Stats() aquarea.FrameStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.framer.Stats()
}

// Close closes the connection and waits briefly for the read loop to exit.
func (t *Transceiver) Close() error {
	err := t.conn.Close()
	select {
	case <-t.done:
	case <-time.After(2 * readTimeout):
		log.Printf("[uart] read loop did not exit in time")
	}
	return err
}
