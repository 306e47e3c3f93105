// SPDX-License-Identifier: Apache-2.0

package aquarea

// Framer states
const (
	frameIdle = iota // scanning for the start delimiter
	frameLength
	frameBody
)

// FrameStats counts what the framer has seen since creation.
type FrameStats struct {
	BytesScanned   uint64
	Frames         uint64 // validated frames emitted
	LengthErrors   uint64
	ChecksumErrors uint64
}

// Framer recovers message boundaries from a raw byte stream. It scans for
// the 0x71 report delimiter, reads the declared payload length, collects the
// payload plus checksum, and emits the frame only if both length and
// checksum validation pass. Malformed candidates are discarded silently and
// scanning resumes from the current stream position; no state persists
// across frames.
type Framer struct {
	state  int
	frame  []byte
	remain int // body bytes still expected
	stats  FrameStats
}

// NewFramer creates a framer in the scanning state.
func NewFramer() *Framer {
	return &Framer{frame: make([]byte, 0, ReportFrameSize)}
}

// Reset returns the framer to the scanning state.
func (f *Framer) Reset() {
	f.state = frameIdle
	f.frame = f.frame[:0]
	f.remain = 0
}

// Stats returns a snapshot of the stream counters.
func (f *Framer) Stats() FrameStats {
	return f.stats
}

// Feed processes one stream byte. It returns a complete validated frame, or
// nil while a frame is incomplete or after a malformed one was dropped. The
// returned slice is a copy and safe to retain.
func (f *Framer) Feed(b byte) []byte {
	f.stats.BytesScanned++

	switch f.state {
	case frameIdle:
		if b == DelimiterQuery {
			f.frame = append(f.frame[:0], b)
			f.state = frameLength
		}
		return nil

	case frameLength:
		f.frame = append(f.frame, b)
		f.remain = int(b) + 1 // payload plus checksum byte
		f.state = frameBody
		return nil

	case frameBody:
		f.frame = append(f.frame, b)
		f.remain--
		if f.remain > 0 {
			return nil
		}

		frame := f.frame
		f.Reset()

		if !ValidateLength(frame) {
			f.stats.LengthErrors++
			return nil
		}
		if !VerifyChecksum(frame) {
			f.stats.ChecksumErrors++
			return nil
		}

		f.stats.Frames++
		out := make([]byte, len(frame))
		copy(out, frame)
		return out
	}

	return nil
}

// ValidateLength reports whether the frame's total length is consistent with
// its declared payload length and meets the protocol minimum.
func ValidateLength(frame []byte) bool {
	if len(frame) < MinFrameSize {
		return false
	}
	declared := int(frame[1])
	return len(frame) == 2+declared+1
}
