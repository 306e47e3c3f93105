// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// fakeConn scripts reads through a channel and exposes writes through
// another, standing in for the serial port.
type fakeConn struct {
	reads  chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan []byte, 16),
		writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	select {
	case chunk := <-c.reads:
		return copy(p, chunk), nil
	case <-c.closed:
		return 0, io.EOF
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case c.writes <- buf:
	case <-c.closed:
		return 0, errors.New("closed")
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func reportFrame(mutate func(buf []byte)) []byte {
	buf := make([]byte, aquarea.ReportFrameSize-1)
	buf[0] = aquarea.DelimiterQuery
	buf[1] = aquarea.ReportPayloadLength
	buf[2] = aquarea.SourceController
	buf[3] = aquarea.PacketTypeStandard
	if mutate != nil {
		mutate(buf)
	}
	return append(buf, aquarea.Checksum(buf))
}

func awaitWrite(t *testing.T, conn *fakeConn, match func([]byte) bool, what string) []byte {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case frame := <-conn.writes:
			if match(frame) {
				return frame
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestBridge_DecodesAndFansOut(t *testing.T) {
	conn := newFakeConn()
	b := New(conn, nil)

	msgs := make(chan aquarea.Message, 4)
	b.Subscribe(func(m aquarea.Message) { msgs <- m })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Close()

	conn.reads <- reportFrame(func(buf []byte) {
		buf[4] = 0x56
		buf[142] = 137
	})

	select {
	case msg := <-msgs:
		if msg.Fields["hp_status"] != "On" {
			t.Errorf("hp_status = %v, want On", msg.Fields["hp_status"])
		}
		if msg.Fields["outdoor_temp"] != 9.0 {
			t.Errorf("outdoor_temp = %v, want 9", msg.Fields["outdoor_temp"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("decoded message not delivered")
	}
}

func TestBridge_SetRoundTrip(t *testing.T) {
	conn := newFakeConn()
	b := New(conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Close()

	// The first standard query goes out immediately; answer it so the
	// scheduler unlocks for the setting command.
	awaitWrite(t, conn, func(f []byte) bool {
		return f[0] == aquarea.DelimiterQuery
	}, "initial query")
	conn.reads <- reportFrame(nil)

	if err := b.Set("dhw_target_temp", 48); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	wire := awaitWrite(t, conn, func(f []byte) bool {
		return f[0] == aquarea.DelimiterSetting
	}, "setting command")
	if len(wire) != aquarea.FrameSize {
		t.Fatalf("wire frame length = %d, want %d", len(wire), aquarea.FrameSize)
	}
	if wire[42] != 176 {
		t.Errorf("dhw byte = %d, want 176", wire[42])
	}
	if !aquarea.VerifyChecksum(wire) {
		t.Error("setting frame carries a bad checksum")
	}
}

func TestBridge_SetValidation(t *testing.T) {
	b := New(newFakeConn(), map[string]float64{"dhw_target_temp": 55})

	var rangeErr *aquarea.RangeError
	if err := b.Set("dhw_target_temp", 56); !errors.As(err, &rangeErr) {
		t.Errorf("Set() error = %v, want RangeError", err)
	} else if !rangeErr.UserLimit {
		t.Error("RangeError.UserLimit = false, want true")
	}

	var notWritable *aquarea.NotWritableError
	if err := b.Set("outdoor_temp", 20); !errors.As(err, &notWritable) {
		t.Errorf("Set() error = %v, want NotWritableError", err)
	}

	var unknown *aquarea.UnknownFieldError
	if err := b.Set("nope", 1); !errors.As(err, &unknown) {
		t.Errorf("Set() error = %v, want UnknownFieldError", err)
	}
}
