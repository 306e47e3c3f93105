// SPDX-License-Identifier: Apache-2.0

package aquarea

import (
	"fmt"
	"math"
)

// kgf/cm² to bar
const kgfCm2ToBar = 0.980665

// Quiet mode bit patterns (5 bits at bit offset 3 of frame byte 7).
var quietModeNames = map[int]string{
	0b01001: "Off",
	0b01010: "Level 1",
	0b01011: "Level 2",
	0b01100: "Level 3",
	0b10001: "Scheduled",
}

// Heat pump on/off status byte values. Anything else is a placeholder
// (0x8A shows up in no-data frames) and must be rejected.
var hpStatusNames = map[int]string{
	0x55: "Off",
	0x56: "On",
	0x96: "Force DHW",
	0x65: "Service: Water pump",
	0x75: "Service: Air purge",
	0xF0: "Service: Pump down",
}

// Operating mode codes (bits 4–7 of frame byte 6). Code 0 appears in
// no-data frames and is rejected.
var operatingModeNames = map[int]string{
	0b0001: "DHW only",
	0b0010: "Heat",
	0b0011: "Cool",
	0b0101: "Heat", // heat with zones
	0b0110: "Heat", // heat with zones
	0b0111: "Cool", // cool with zones
	0b1001: "Auto(Heat)",
	0b1010: "Auto(Cool)",
}

// Raw byte written for each writable operating mode index.
var operatingModeRaw = map[int]int{
	0: 18, // Heat
	1: 19, // Cool
	2: 24, // DHW only
	3: 33, // Auto
	4: 34, // Auto(Heat)
	5: 35, // Auto(Cool)
	6: 40,
}

// convertValue maps a raw field integer to its domain value. An error means
// the raw value is an invalid or placeholder encoding and the field must be
// skipped; it is never surfaced past the codec.
func convertValue(c Conversion, raw int) (interface{}, error) {
	switch c {
	case ConvRaw:
		return raw, nil
	case ConvTemp:
		return float64(raw - 128), nil
	case ConvMinusOne:
		return raw - 1, nil
	case ConvPumpFlow:
		low := raw & 0xFF
		high := (raw >> 8) & 0xFF
		return float64(low) + float64(high-1)/256, nil
	case ConvPumpSpeed:
		return (raw - 1) * 50, nil
	case ConvFanSpeed:
		return (raw - 1) * 10, nil
	case ConvPressure:
		return float64(raw-1) / 5 * kgfCm2ToBar, nil
	case ConvWaterPressure:
		return float64(raw-1) / 50, nil
	case ConvQuiet:
		if name, ok := quietModeNames[raw]; ok {
			return name, nil
		}
		return fmt.Sprintf("Unknown(%d)", raw), nil
	case ConvHPStatus:
		if name, ok := hpStatusNames[raw]; ok {
			return name, nil
		}
		return nil, fmt.Errorf("invalid hp_status value: 0x%02x", raw)
	case ConvDefrost:
		return convertDefrost(raw), nil
	case ConvOpMode:
		return convertOperatingMode(raw)
	default:
		return nil, fmt.Errorf("unknown conversion %d", c)
	}
}

// invertValue maps a domain value back to the raw field integer for encode.
// The value has already passed bounds validation.
func invertValue(c Conversion, value float64) (int, error) {
	switch c {
	case ConvRaw:
		return int(value), nil
	case ConvTemp:
		return int(math.Round(value)) + 128, nil
	case ConvQuiet:
		// level 0–3 → raw pattern 1–4
		return int(value) + 1, nil
	case ConvHPStatus:
		// 0=Off, 1=On → raw 1/2
		return int(value) + 1, nil
	case ConvOpMode:
		raw, ok := operatingModeRaw[int(value)]
		if !ok {
			return 0, fmt.Errorf("invalid operating mode index %d", int(value))
		}
		return raw, nil
	default:
		return 0, fmt.Errorf("conversion %d has no encode rule", c)
	}
}

// convertDefrost decodes the composite defrost / 3-way valve byte:
// bits 0–1 valve (0b10=DHW, 0b01=Room), bits 2–3 defrost (0b10=active).
func convertDefrost(raw int) string {
	valve := "Unknown"
	switch raw & 0b11 {
	case 0b10:
		valve = "DHW"
	case 0b01:
		valve = "Room"
	}
	defrost := "Inactive"
	if (raw>>2)&0b11 == 0b10 {
		defrost = "Active"
	}
	return fmt.Sprintf("Valve:%s, Defrost:%s", valve, defrost)
}

// convertOperatingMode decodes the composite operating mode byte: bit 0
// zone2, bit 1 zone1, bits 2–3 DHW (0b10=on), bits 4–7 mode code.
func convertOperatingMode(raw int) (interface{}, error) {
	modeBits := (raw >> 4) & 0b1111
	mode, ok := operatingModeNames[modeBits]
	if !ok {
		// Code 0 means "off" only in no-data frames; hp_status and
		// compressor_frequency are authoritative for off detection.
		return nil, fmt.Errorf("invalid operating_mode: mode_bits=%04b", modeBits)
	}

	dhw := "off"
	if (raw>>2)&0b11 == 0b10 {
		dhw = "on"
	}

	zones := ""
	zone1 := raw>>1&1 == 1
	zone2 := raw&1 == 1
	switch {
	case zone1 && zone2:
		zones = " [Z1+Z2]"
	case zone1:
		zones = " [Z1]"
	case zone2:
		zones = " [Z2]"
	}

	return fmt.Sprintf("%s%s, DHW %s", mode, zones, dhw), nil
}
