// SPDX-License-Identifier: Apache-2.0

package aquarea

import (
	"fmt"
	"sort"
	"strings"
)

// FormatMessage formats a decoded message into a human-readable multi-line
// string, one field per line in name order.
func FormatMessage(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (0x%02X) %d fields:\n",
		FormatPacketType(msg.PacketType), msg.PacketType, len(msg.Fields))

	names := make([]string, 0, len(msg.Fields))
	for name := range msg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	table := StandardFields
	if msg.PacketType == PacketTypeExtra {
		table = ExtraFields
	}

	for _, name := range names {
		unit := ""
		if f, ok := FieldByName(table, name); ok && f.Unit != "" {
			unit = " " + f.Unit
		}
		fmt.Fprintf(&b, "  %-30s %v%s\n", name, FormatValue(msg.Fields[name]), unit)
	}

	return b.String()
}

// FormatPacketType returns the human-readable name for a packet type byte.
func FormatPacketType(packetType byte) string {
	switch packetType {
	case PacketTypeStandard:
		return "STANDARD"
	case PacketTypeExtra:
		return "EXTRA"
	default:
		return "UNKNOWN"
	}
}

// FormatValue renders a field value, trimming float noise to one decimal
// where the fraction is insignificant.
func FormatValue(v interface{}) string {
	if f, ok := v.(float64); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%.1f", f)
		}
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%v", v)
}

// FormatFrame renders a frame as a hex dump, 16 bytes per row.
func FormatFrame(frame []byte) string {
	var b strings.Builder
	for i, by := range frame {
		if i > 0 {
			if i%16 == 0 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		fmt.Fprintf(&b, "%02X", by)
	}
	return b.String()
}
