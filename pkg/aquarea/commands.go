// SPDX-License-Identifier: Apache-2.0

package aquarea

// Query builder functions create checksum-free command buffers ready for
// transmission. The transceiver appends the checksum on send.

// NewQueryCommand builds the standard telemetry query: a 0x71 frame with
// every parameter byte zero.
func NewQueryCommand() []byte {
	buf := make([]byte, FrameSize-1)
	buf[0] = DelimiterQuery
	buf[1] = PayloadLength
	buf[2] = SourceController
	buf[3] = PacketTypeStandard
	return buf
}

// NewExtraQueryCommand builds the extended power-telemetry query, identical
// to the standard query except for the packet type byte.
func NewExtraQueryCommand() []byte {
	buf := NewQueryCommand()
	buf[packetTypeOffset] = PacketTypeExtra
	return buf
}
