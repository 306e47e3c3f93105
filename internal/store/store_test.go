// SPDX-License-Identifier: Apache-2.0

package store

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStore_InsertAndQuery(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.Insert(Snapshot{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			OutdoorTemp: fptr(float64(10 + i)),
		})
		if err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	snaps, err := s.Snapshots(base, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Snapshots() error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2 (end exclusive)", len(snaps))
	}
	if *snaps[0].OutdoorTemp != 10 || *snaps[1].OutdoorTemp != 11 {
		t.Errorf("snapshots out of order: %v, %v", *snaps[0].OutdoorTemp, *snaps[1].OutdoorTemp)
	}
	if snaps[0].HPStatus != nil {
		t.Error("absent column scanned as non-nil")
	}
}

func TestStore_DailySummary(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Constant 1000 W generated / 250 W consumed over one hour.
	for i := 0; i <= 2; i++ {
		err := s.Insert(Snapshot{
			Timestamp:            base.Add(time.Duration(i) * 30 * time.Minute),
			OutdoorTemp:          fptr(8),
			HeatPowerGeneration:  fptr(1000),
			HeatPowerConsumption: fptr(250),
			HPStatus:             sptr("On"),
		})
		if err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	sum, err := s.DailySummaryFor(base)
	if err != nil {
		t.Fatalf("DailySummaryFor() error: %v", err)
	}
	if sum == nil {
		t.Fatal("DailySummaryFor() = nil, want summary")
	}
	if sum.Date != "2025-06-01" {
		t.Errorf("Date = %s", sum.Date)
	}
	if !almostEqual(sum.TotalHeatKWh, 1.0) {
		t.Errorf("TotalHeatKWh = %v, want 1.0", sum.TotalHeatKWh)
	}
	if !almostEqual(sum.TotalConsumptionKWh, 0.25) {
		t.Errorf("TotalConsumptionKWh = %v, want 0.25", sum.TotalConsumptionKWh)
	}
	if !almostEqual(sum.AvgCOP, 4.0) {
		t.Errorf("AvgCOP = %v, want 4.0", sum.AvgCOP)
	}
	if !almostEqual(sum.RuntimeHours, 1.0) {
		t.Errorf("RuntimeHours = %v, want 1.0", sum.RuntimeHours)
	}
	if !almostEqual(sum.AvgOutdoorTemp, 8.0) {
		t.Errorf("AvgOutdoorTemp = %v, want 8.0", sum.AvgOutdoorTemp)
	}
}

func TestStore_DailySummaryEmptyDay(t *testing.T) {
	s := openTestStore(t)
	sum, err := s.DailySummaryFor(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailySummaryFor() error: %v", err)
	}
	if sum != nil {
		t.Errorf("summary for empty day = %+v, want nil", sum)
	}
}

func TestStore_ApplyAndFlush(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Nothing seen yet: flush is a no-op.
	if err := s.Flush(now); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	snaps, err := s.Snapshots(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Fatal("flush before any telemetry wrote a row")
	}

	// Standard and extra messages both contribute.
	s.Apply(aquarea.Message{
		PacketType: aquarea.PacketTypeStandard,
		Fields: map[string]interface{}{
			"outdoor_temp": 9.0,
			"hp_status":    "On",
			"quiet_mode":   "Off", // not persisted
		},
	})
	s.Apply(aquarea.Message{
		PacketType: aquarea.PacketTypeExtra,
		Fields: map[string]interface{}{
			"heat_power_consumption": 480,
		},
	})

	if err := s.Flush(now); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	snaps, err = s.Snapshots(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d rows, want 1", len(snaps))
	}
	snap := snaps[0]
	if snap.OutdoorTemp == nil || *snap.OutdoorTemp != 9.0 {
		t.Errorf("OutdoorTemp = %v", snap.OutdoorTemp)
	}
	if snap.HPStatus == nil || *snap.HPStatus != "On" {
		t.Errorf("HPStatus = %v", snap.HPStatus)
	}
	if snap.HeatPowerConsumption == nil || *snap.HeatPowerConsumption != 480 {
		t.Errorf("HeatPowerConsumption = %v", snap.HeatPowerConsumption)
	}
}

func TestStore_FlushOnlyWhenDirty(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Apply(aquarea.Message{
		PacketType: aquarea.PacketTypeStandard,
		Fields:     map[string]interface{}{"outdoor_temp": 9.0},
	})
	if err := s.Flush(now); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	// No telemetry since the last flush: nothing new to write.
	if err := s.Flush(now.Add(time.Minute)); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	snaps, err := s.Snapshots(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d rows after idle flush, want 1", len(snaps))
	}

	// Fresh telemetry makes the next flush write again.
	s.Apply(aquarea.Message{
		PacketType: aquarea.PacketTypeStandard,
		Fields:     map[string]interface{}{"outdoor_temp": 10.0},
	})
	if err := s.Flush(now.Add(2 * time.Minute)); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	snaps, err = s.Snapshots(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d rows after fresh telemetry, want 2", len(snaps))
	}
}

func TestStore_Cleanup(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	if err := s.Insert(Snapshot{Timestamp: now.AddDate(0, 0, -10), OutdoorTemp: fptr(1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(Snapshot{Timestamp: now, OutdoorTemp: fptr(2)}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Cleanup(7)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	snaps, err := s.Snapshots(now.AddDate(0, 0, -30), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 || *snaps[0].OutdoorTemp != 2 {
		t.Errorf("remaining rows = %d", len(snaps))
	}
}
