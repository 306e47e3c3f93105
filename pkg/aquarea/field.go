// SPDX-License-Identifier: Apache-2.0

package aquarea

// Conversion identifies the rule that maps a field's raw integer to its
// domain value and back. Keeping the rule as a closed enum (instead of a
// function pointer in the table) keeps FieldSpec inspectable and the whole
// table plain data.
type Conversion int

const (
	// ConvRaw passes the raw integer through unchanged.
	ConvRaw Conversion = iota
	// ConvTemp is raw−128 °C; encode rounds and adds 128.
	ConvTemp
	// ConvMinusOne is raw−1 (compressor frequency in Hz, heat pump power in kW).
	ConvMinusOne
	// ConvPumpFlow decodes a 2-byte little-endian value as
	// low + (high−1)/256 L/min.
	ConvPumpFlow
	// ConvPumpSpeed is (raw−1)×50 RPM.
	ConvPumpSpeed
	// ConvFanSpeed is (raw−1)×10 RPM.
	ConvFanSpeed
	// ConvPressure converts a raw kgf/cm² reading to bar:
	// ((raw−1)/5) × 0.980665.
	ConvPressure
	// ConvWaterPressure is (raw−1)/50 bar.
	ConvWaterPressure
	// ConvQuiet maps the 5-bit quiet mode pattern to a mode name; encode
	// takes a level 0–3 and writes level+1.
	ConvQuiet
	// ConvHPStatus maps the on/off status byte to a state name; unknown
	// bytes (0x8A in no-data frames) are rejected. Encode takes 0/1 and
	// writes value+1.
	ConvHPStatus
	// ConvDefrost decodes the composite defrost / 3-way valve byte.
	ConvDefrost
	// ConvOpMode decodes the composite operating mode byte; encode takes a
	// mode index 0–6 and writes a fixed raw byte.
	ConvOpMode
)

// FieldSpec describes one named value inside a frame. Offsets are absolute
// frame offsets (the delimiter is byte 0). The zero values of BitLength and
// ByteLength mean "plain single byte".
type FieldSpec struct {
	Name       string
	ByteOffset int
	BitOffset  int // sub-byte field when BitLength > 0
	BitLength  int
	ByteLength int // >1 means little-endian multi-byte
	Conv       Conversion
	Unit       string

	// Temperature enables the −50..100 °C sanity filter on decode.
	Temperature bool

	// SkipZero treats a raw 0x00 as "no data" and omits the field.
	SkipZero bool

	Writable bool
	Min, Max float64 // protocol-absolute bounds, writable fields only
}

// StandardFields is the field table for PacketTypeStandard frames.
var StandardFields = []FieldSpec{
	{Name: "quiet_mode", ByteOffset: 7, BitOffset: 3, BitLength: 5, Conv: ConvQuiet,
		SkipZero: true, Writable: true, Min: 0, Max: 3},
	{Name: "zone1_actual_temp", ByteOffset: 139, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "outdoor_temp", ByteOffset: 142, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "outlet_water_temp", ByteOffset: 144, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "compressor_frequency", ByteOffset: 166, Conv: ConvMinusOne, Unit: "Hz", SkipZero: true},
	{Name: "dhw_target_temp", ByteOffset: 42, Conv: ConvTemp, Unit: "°C", Temperature: true,
		SkipZero: true, Writable: true, Min: 40, Max: 75},
	{Name: "zone1_heat_target_temp", ByteOffset: 38, Conv: ConvTemp, Unit: "°C", Temperature: true,
		SkipZero: true, Writable: true, Min: 20, Max: 65},
	{Name: "zone1_target_temp", ByteOffset: 147, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "inlet_water_temp", ByteOffset: 143, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "pump_flow_rate", ByteOffset: 170, ByteLength: 2, Conv: ConvPumpFlow, Unit: "L/min", SkipZero: true},
	{Name: "operating_mode", ByteOffset: 6, Conv: ConvOpMode,
		SkipZero: true, Writable: true, Min: 0, Max: 6},
	{Name: "dhw_actual_temp", ByteOffset: 141, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "pump_speed", ByteOffset: 171, Conv: ConvPumpSpeed, Unit: "RPM", SkipZero: true},
	{Name: "hp_status", ByteOffset: 4, Conv: ConvHPStatus,
		Writable: true, Min: 0, Max: 1}, // 0x00 might be a valid status value
	{Name: "defrost_status", ByteOffset: 111, Conv: ConvDefrost, SkipZero: true},
	{Name: "hp_power", ByteOffset: 191, Conv: ConvMinusOne, Unit: "kW", SkipZero: true},
	{Name: "fan1_motor_speed", ByteOffset: 173, Conv: ConvFanSpeed, Unit: "RPM", SkipZero: true},
	{Name: "discharge_temp", ByteOffset: 155, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "indoor_piping_temp", ByteOffset: 157, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "outdoor_piping_temp", ByteOffset: 158, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "defrost_temp", ByteOffset: 159, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "eva_outlet_temp", ByteOffset: 160, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "bypass_outlet_temp", ByteOffset: 161, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "ipm_temp", ByteOffset: 162, Conv: ConvTemp, Unit: "°C", Temperature: true, SkipZero: true},
	{Name: "high_pressure", ByteOffset: 163, Conv: ConvPressure, Unit: "bar", SkipZero: true},
	{Name: "low_pressure", ByteOffset: 164, Conv: ConvPressure, Unit: "bar"},
	{Name: "water_pressure", ByteOffset: 125, Conv: ConvWaterPressure, Unit: "bar"},
}

// ExtraFields is the field table for PacketTypeExtra frames: instantaneous
// power figures in Watts, 16-bit little-endian.
var ExtraFields = []FieldSpec{
	{Name: "heat_power_consumption", ByteOffset: 14, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
	{Name: "cool_power_consumption", ByteOffset: 16, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
	{Name: "dhw_power_consumption", ByteOffset: 18, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
	{Name: "heat_power_generation", ByteOffset: 20, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
	{Name: "cool_power_generation", ByteOffset: 22, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
	{Name: "dhw_power_generation", ByteOffset: 24, ByteLength: 2, Conv: ConvRaw, Unit: "W"},
}

// FieldByName looks a field up in the given table.
func FieldByName(fields []FieldSpec, name string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
