// SPDX-License-Identifier: Apache-2.0

// Package aquarea implements the Panasonic Aquarea heat pump UART protocol.
//
// The protocol exchanges fixed-layout binary frames over a 9600 baud serial
// link: a start delimiter, a declared payload length, the payload, and an
// additive checksum. This package provides the field table describing every
// known payload position, value conversion between raw bytes and domain
// values, message encoding/decoding, and stream framing with checksum
// validation.
package aquarea

// Frame delimiters. Reports and queries use 0x71, setting commands 0xF1.
const (
	DelimiterQuery   = 0x71
	DelimiterSetting = 0xF1
)

// Packet types, found at payload offset 1 (absolute frame byte 3).
const (
	PacketTypeStandard = 0x10 // telemetry and settings
	PacketTypeExtra    = 0x21 // power consumption/generation telemetry
)

// Frame geometry. Commands we originate carry a 108-byte payload, 111
// bytes on the wire with the checksum. Report frames coming back from the
// heat pump declare a 200-byte payload (0xC8), 203 bytes total; the field
// table's report offsets reach past the command payload.
const (
	SourceController = 0x01 // payload offset 0 of frames we originate
	PayloadLength    = 108  // command declared length byte (0x6C)
	FrameSize        = 2 + PayloadLength + 1

	ReportPayloadLength = 200 // report declared length byte (0xC8)
	ReportFrameSize     = 2 + ReportPayloadLength + 1

	MinFrameSize = 6 // shortest frame accepted by the framer

	// Minimum bytes needed before the packet type byte is readable.
	minDecodeSize = 4

	packetTypeOffset = 3
)

// Sanity band for decoded temperatures. Values outside are treated as
// placeholder bytes from no-data frames and skipped. Empirically observed on
// real hardware, not documented protocol behavior.
const (
	tempSanityMin = -50
	tempSanityMax = 100
)
