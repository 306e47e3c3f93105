// SPDX-License-Identifier: Apache-2.0

package aquarea

// Checksum computes the additive frame checksum over data. It is chosen so
// that the sum of all frame bytes including the checksum is 0 mod 256:
// checksum = (256 − sum(data)) & 0xFF.
func Checksum(data []byte) byte {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return byte((256 - sum) & 0xFF)
}

// VerifyChecksum reports whether the last byte of frame is the correct
// checksum of everything before it.
func VerifyChecksum(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	return Checksum(frame[:len(frame)-1]) == frame[len(frame)-1]
}
