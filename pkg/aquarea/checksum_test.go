// SPDX-License-Identifier: Apache-2.0

package aquarea

import "testing"

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{
			name:     "setting header fragment",
			data:     []byte{0xF1, 0x10, 0x01},
			expected: 0xFE, // 256 - (241+16+1) mod 256
		},
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0x00,
		},
		{
			name:     "single byte",
			data:     []byte{0x71},
			expected: 0x8F,
		},
		{
			name:     "sum wraps past 256",
			data:     []byte{0xFF, 0xFF, 0x02},
			expected: 0x00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum() = 0x%02X, want 0x%02X", got, tt.expected)
			}
		})
	}
}

func TestChecksum_FrameSumsToZero(t *testing.T) {
	frame := NewQueryCommand()
	frame = append(frame, Checksum(frame))

	sum := 0
	for _, b := range frame {
		sum += int(b)
	}
	if sum&0xFF != 0 {
		t.Errorf("frame bytes including checksum should sum to 0 mod 256, got %d", sum&0xFF)
	}
}

func TestVerifyChecksum(t *testing.T) {
	frame := []byte{0x71, 0x02, 0x01, 0x10}
	frame = append(frame, Checksum(frame))

	if !VerifyChecksum(frame) {
		t.Error("valid checksum rejected")
	}

	// Flipping any single bit of the checksum byte must fail.
	for bit := 0; bit < 8; bit++ {
		bad := make([]byte, len(frame))
		copy(bad, frame)
		bad[len(bad)-1] ^= 1 << bit
		if VerifyChecksum(bad) {
			t.Errorf("checksum with bit %d flipped accepted", bit)
		}
	}

	// Flipping a data byte while keeping the checksum must fail too.
	bad := make([]byte, len(frame))
	copy(bad, frame)
	bad[2] ^= 0x04
	if VerifyChecksum(bad) {
		t.Error("corrupted data byte accepted")
	}

	if VerifyChecksum([]byte{0x71}) {
		t.Error("single byte accepted")
	}
}
