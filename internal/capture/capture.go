// SPDX-License-Identifier: Apache-2.0

// Package capture records raw validated frames to a CBOR stream for later
// replay. Each record carries the receive timestamp and the frame bytes
// including the checksum.
package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one captured frame.
type Record struct {
	Timestamp int64  `cbor:"1,keyasint"` // Unix milliseconds
	Frame     []byte `cbor:"2,keyasint"`
}

// Time returns the record's timestamp.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Writer appends records to a CBOR stream.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter wraps an output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write appends one frame stamped at t.
func (w *Writer) Write(t time.Time, frame []byte) error {
	rec := Record{Timestamp: t.UnixMilli(), Frame: frame}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// Reader iterates a CBOR capture stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader wraps an input stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at end of stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}
