// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// fakeConn scripts the read side with a channel of chunks and records every
// write. Read blocks until a chunk arrives or the conn is closed.
type fakeConn struct {
	chunks chan []byte
	closed chan struct{}

	mu     sync.Mutex
	writes [][]byte

	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		chunks: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	select {
	case chunk := <-c.chunks:
		return copy(p, chunk), nil
	case <-c.closed:
		return 0, io.EOF
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(p))
	copy(buf, p)
	c.writes = append(c.writes, buf)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// validFrame builds a checksummed standard report frame.
func validFrame() []byte {
	buf := make([]byte, aquarea.ReportFrameSize-1)
	buf[0] = aquarea.DelimiterQuery
	buf[1] = aquarea.ReportPayloadLength
	buf[2] = aquarea.SourceController
	buf[3] = aquarea.PacketTypeStandard
	return append(buf, aquarea.Checksum(buf))
}

func TestTransceiver_DeliversFrames(t *testing.T) {
	conn := newFakeConn()
	frames := make(chan []byte, 4)
	tr := NewTransceiver(conn, func(f []byte) { frames <- f })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Close()

	frame := validFrame()
	// Split across chunks with garbage in front, the way a live port
	// delivers data.
	conn.chunks <- append([]byte{0x00, 0xFF}, frame[:40]...)
	conn.chunks <- frame[40:]

	select {
	case got := <-frames:
		if !bytes.Equal(got, frame) {
			t.Error("delivered frame differs from wire bytes")
		}
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}

	if stats := tr.Stats(); stats.Frames != 1 {
		t.Errorf("Frames = %d, want 1", stats.Frames)
	}
}

func TestTransceiver_DropsCorruptFrames(t *testing.T) {
	conn := newFakeConn()
	frames := make(chan []byte, 4)
	tr := NewTransceiver(conn, func(f []byte) { frames <- f })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Close()

	bad := validFrame()
	bad[50] ^= 0x01
	conn.chunks <- bad
	conn.chunks <- validFrame()

	select {
	case got := <-frames:
		if !aquarea.VerifyChecksum(got) {
			t.Error("corrupt frame delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("good frame not delivered after corrupt one")
	}

	if stats := tr.Stats(); stats.ChecksumErrors != 1 {
		t.Errorf("ChecksumErrors = %d, want 1", stats.ChecksumErrors)
	}
}

func TestTransceiver_SendAppendsChecksum(t *testing.T) {
	conn := newFakeConn()
	tr := NewTransceiver(conn, nil)

	cmd := aquarea.NewQueryCommand()
	if err := tr.Send(cmd); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	writes := conn.written()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}
	wire := writes[0]
	if len(wire) != aquarea.FrameSize {
		t.Fatalf("wire frame length = %d, want %d", len(wire), aquarea.FrameSize)
	}
	sum := 0
	for _, b := range wire {
		sum += int(b)
	}
	if sum&0xFF != 0 {
		t.Error("wire frame does not sum to zero mod 256")
	}
}

func TestTransceiver_CloseUnblocksReadLoop(t *testing.T) {
	conn := newFakeConn()
	tr := NewTransceiver(conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	done := make(chan struct{})
	go func() {
		tr.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}
}
