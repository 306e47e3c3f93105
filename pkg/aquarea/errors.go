// SPDX-License-Identifier: Apache-2.0

package aquarea

import "fmt"

// UnknownFieldError is returned by Encode when the message names a field
// that does not exist in the codec's table.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Name)
}

// NotWritableError is returned by Encode for read-only fields.
type NotWritableError struct {
	Name string
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("field %q is not writable", e.Name)
}

// RangeError is returned by Encode when a value falls outside the stricter
// of the protocol bounds and any user-configured limit.
type RangeError struct {
	Name      string
	Value     float64
	Limit     float64
	UserLimit bool // limit came from configuration, not the protocol
	Below     bool // value is below the minimum rather than above the maximum
}

func (e *RangeError) Error() string {
	if e.Below {
		return fmt.Sprintf("field %q value %v is below minimum %v", e.Name, e.Value, e.Limit)
	}
	kind := ""
	if e.UserLimit {
		kind = "user-defined "
	}
	return fmt.Sprintf("field %q value %v exceeds %smaximum %v", e.Name, e.Value, kind, e.Limit)
}

// UnknownPacketError is returned by Decode for an unrecognized packet type
// byte.
type UnknownPacketError struct {
	Type byte
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("unknown packet type: 0x%02x", e.Type)
}

// ShortFrameError is returned by Decode when the frame is too short to carry
// a packet type byte.
type ShortFrameError struct {
	Length int
}

func (e *ShortFrameError) Error() string {
	return fmt.Sprintf("frame too short: %d bytes (minimum %d)", e.Length, minDecodeSize)
}
