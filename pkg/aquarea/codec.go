// SPDX-License-Identifier: Apache-2.0

package aquarea

import "fmt"

// Message is a decoded frame: the packet type plus a map of field name to
// domain value (float64, int, or string — never raw bytes). Decode inserts
// only the fields that were present and valid in the frame; absence of a
// field is expected and means "no reading this cycle".
type Message struct {
	PacketType byte
	Fields     map[string]interface{}
}

// Codec converts between validated frames and Messages using a field table.
// User limits (per-field maximum overrides from configuration) may only
// tighten protocol bounds; that invariant is enforced by config validation
// before the limits reach the codec.
type Codec struct {
	fields []FieldSpec
	limits map[string]float64
}

// NewCodec creates a codec over the given field table. limits may be nil.
func NewCodec(fields []FieldSpec, limits map[string]float64) *Codec {
	return &Codec{fields: fields, limits: limits}
}

// Fields returns the codec's field table.
func (c *Codec) Fields() []FieldSpec {
	return c.fields
}

// Decode parses a validated frame into a Message. The frame must already
// have passed length and checksum validation; offsets in the field table are
// absolute frame offsets. Individual field rejections (out-of-buffer, zero
// with SkipZero, invalid enum byte, temperature outside the sanity band) are
// silent skips, never errors.
func (c *Codec) Decode(frame []byte, packetType byte) Message {
	values := make(map[string]interface{})

	for _, f := range c.fields {
		width := f.ByteLength
		if width < 1 {
			width = 1
		}
		if f.ByteOffset+width > len(frame) {
			continue
		}

		raw := extractValue(frame, f)
		if raw == 0 && f.SkipZero {
			continue
		}

		value, err := convertValue(f.Conv, raw)
		if err != nil {
			// Placeholder or invalid encoding, not a reading.
			continue
		}

		if f.Temperature {
			if v, ok := toFloat(value); ok && (v < tempSanityMin || v > tempSanityMax) {
				continue
			}
		}

		values[f.Name] = value
	}

	return Message{PacketType: packetType, Fields: values}
}

// Encode builds a checksum-free setting-command buffer from the message. A
// nil base starts from the all-zero template stamped with the setting
// header; passing a previously received frame as base produces a partial
// update. Field packing order is irrelevant since every field writes a
// disjoint bit or byte range.
//
// Encode fails before any byte reaches the wire: unknown field names,
// non-writable fields, and out-of-bounds values are reported as typed
// errors.
func (c *Codec) Encode(msg Message, base []byte) ([]byte, error) {
	var buf []byte
	if base == nil {
		buf = make([]byte, FrameSize-1)
		buf[0] = DelimiterSetting
		buf[1] = PayloadLength
		buf[2] = SourceController
		buf[3] = PacketTypeStandard
	} else {
		buf = make([]byte, len(base))
		copy(buf, base)
	}

	for name, value := range msg.Fields {
		f, ok := FieldByName(c.fields, name)
		if !ok {
			return nil, &UnknownFieldError{Name: name}
		}
		if !f.Writable {
			return nil, &NotWritableError{Name: name}
		}

		v, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("field %q: unsupported value type %T", name, value)
		}
		if err := c.validateBounds(f, v); err != nil {
			return nil, err
		}

		raw, err := invertValue(f.Conv, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		packValue(buf, f, raw)
	}

	return buf, nil
}

// validateBounds checks a value against the stricter of the field's protocol
// bounds and any user-configured maximum.
func (c *Codec) validateBounds(f FieldSpec, v float64) error {
	max := f.Max
	userLimit := false
	if userMax, ok := c.limits[f.Name]; ok && userMax < max {
		max = userMax
		userLimit = true
	}

	if v < f.Min {
		return &RangeError{Name: f.Name, Value: v, Limit: f.Min, Below: true}
	}
	if v > max {
		return &RangeError{Name: f.Name, Value: v, Limit: max, UserLimit: userLimit}
	}
	return nil
}

// extractValue reads a field's raw integer from the frame.
func extractValue(frame []byte, f FieldSpec) int {
	if f.ByteLength > 1 {
		raw := 0
		for i := 0; i < f.ByteLength; i++ {
			raw |= int(frame[f.ByteOffset+i]) << (i * 8)
		}
		return raw
	}

	b := int(frame[f.ByteOffset])
	if f.BitLength > 0 {
		return (b >> f.BitOffset) & ((1 << f.BitLength) - 1)
	}
	return b
}

// packValue writes a field's raw integer into the buffer. Bit fields are
// read-modify-write, preserving the other bits of the byte.
func packValue(buf []byte, f FieldSpec, raw int) {
	switch {
	case f.ByteLength > 1:
		for i := 0; i < f.ByteLength; i++ {
			buf[f.ByteOffset+i] = byte(raw >> (i * 8))
		}
	case f.BitLength > 0:
		mask := byte(((1 << f.BitLength) - 1) << f.BitOffset)
		buf[f.ByteOffset] = (buf[f.ByteOffset] &^ mask) | (byte(raw<<f.BitOffset) & mask)
	default:
		buf[f.ByteOffset] = byte(raw)
	}
}

// toFloat widens the numeric types a Message may carry.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Protocol routes frames to the codec for their packet type.
type Protocol struct {
	Standard *Codec
	Extra    *Codec
}

// NewProtocol creates a protocol instance. limits carries per-field maximum
// overrides from configuration and may be nil.
func NewProtocol(limits map[string]float64) *Protocol {
	return &Protocol{
		Standard: NewCodec(StandardFields, limits),
		Extra:    NewCodec(ExtraFields, limits),
	}
}

// Decode dispatches a validated frame on its packet type byte.
func (p *Protocol) Decode(frame []byte) (Message, error) {
	if len(frame) < minDecodeSize {
		return Message{}, &ShortFrameError{Length: len(frame)}
	}

	packetType := frame[packetTypeOffset]
	switch packetType {
	case PacketTypeStandard:
		return p.Standard.Decode(frame, packetType), nil
	case PacketTypeExtra:
		return p.Extra.Decode(frame, packetType), nil
	default:
		return Message{}, &UnknownPacketError{Type: packetType}
	}
}
