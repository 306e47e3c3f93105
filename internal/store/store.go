// SPDX-License-Identifier: Apache-2.0

// Package store persists periodic telemetry snapshots to SQLite and derives
// daily energy figures from them.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Snapshot is one telemetry row. Nil pointers mean the value was never seen.
type Snapshot struct {
	Timestamp            time.Time
	OutdoorTemp          *float64
	HeatPowerGeneration  *float64 // W
	HeatPowerConsumption *float64 // W
	InletWaterTemp       *float64
	OutletWaterTemp      *float64
	Zone1ActualTemp      *float64
	HPStatus             *string
	OperatingMode        *string
}

// DailySummary aggregates one calendar day of snapshots. Energies come from
// trapezoidal integration of the power readings over time.
type DailySummary struct {
	Date                string
	TotalHeatKWh        float64
	TotalConsumptionKWh float64
	AvgCOP              float64
	AvgOutdoorTemp      float64
	RuntimeHours        float64
}

// Store owns the database connection and the latest merged telemetry state.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	latest Snapshot
	dirty  bool
}

// Open opens (or creates) the SQLite database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(db, migrationFS, "migrations")

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Apply merges the fields of a decoded message into the pending snapshot.
// Wire it to the bridge's subscription; standard and extra messages each
// contribute their share.
func (s *Store) Apply(msg aquarea.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, value := range msg.Fields {
		switch name {
		case "outdoor_temp":
			s.latest.OutdoorTemp = asFloatPtr(value)
		case "heat_power_generation":
			s.latest.HeatPowerGeneration = asFloatPtr(value)
		case "heat_power_consumption":
			s.latest.HeatPowerConsumption = asFloatPtr(value)
		case "inlet_water_temp":
			s.latest.InletWaterTemp = asFloatPtr(value)
		case "outlet_water_temp":
			s.latest.OutletWaterTemp = asFloatPtr(value)
		case "zone1_actual_temp":
			s.latest.Zone1ActualTemp = asFloatPtr(value)
		case "hp_status":
			s.latest.HPStatus = asStringPtr(value)
		case "operating_mode":
			s.latest.OperatingMode = asStringPtr(value)
		default:
			continue
		}
		s.dirty = true
	}
}

// Flush writes the pending snapshot as a row stamped now. It is a no-op
// until the first field arrives, and again until the next field after each
// successful write; a failed write leaves the snapshot pending.
func (s *Store) Flush(now time.Time) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.latest
	snap.Timestamp = now
	s.dirty = false
	s.mu.Unlock()

	if err := s.Insert(snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

// Run flushes a snapshot every interval until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(time.Now()); err != nil {
				log.Printf("[store] flush failed: %v", err)
			}
		}
	}
}

// Insert writes one snapshot row.
func (s *Store) Insert(snap Snapshot) error {
	_, err := s.db.Exec(
		"INSERT INTO snapshots "+
			"(timestamp, outdoor_temp, heat_power_generation, heat_power_consumption, "+
			"inlet_water_temp, outlet_water_temp, zone1_actual_temp, hp_status, operating_mode) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		snap.Timestamp.UTC().Format(time.RFC3339),
		snap.OutdoorTemp,
		snap.HeatPowerGeneration,
		snap.HeatPowerConsumption,
		snap.InletWaterTemp,
		snap.OutletWaterTemp,
		snap.Zone1ActualTemp,
		snap.HPStatus,
		snap.OperatingMode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Snapshots returns rows with start <= timestamp < end, in time order.
func (s *Store) Snapshots(start, end time.Time) ([]Snapshot, error) {
	rows, err := s.db.Query(
		"SELECT timestamp, outdoor_temp, heat_power_generation, heat_power_consumption, "+
			"inlet_water_temp, outlet_water_temp, zone1_actual_temp, hp_status, operating_mode "+
			"FROM snapshots WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp ASC",
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap  Snapshot
			stamp string
		)
		if err := rows.Scan(
			&stamp,
			&snap.OutdoorTemp,
			&snap.HeatPowerGeneration,
			&snap.HeatPowerConsumption,
			&snap.InletWaterTemp,
			&snap.OutletWaterTemp,
			&snap.Zone1ActualTemp,
			&snap.HPStatus,
			&snap.OperatingMode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.Timestamp, err = time.Parse(time.RFC3339, stamp); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", stamp, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DailySummaryFor integrates one calendar day of snapshots. Returns nil when
// the day holds no data.
//
// Energy (kWh) = sum of (P1+P2)/2 * dt, divided by 3600*1000.
func (s *Store) DailySummaryFor(day time.Time) (*DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	snaps, err := s.Snapshots(start, end)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var heatKWh, consKWh, runtimeSec float64
	for i := 1; i < len(snaps); i++ {
		prev, curr := snaps[i-1], snaps[i]
		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()

		if prev.HeatPowerGeneration != nil && curr.HeatPowerGeneration != nil {
			avg := (*prev.HeatPowerGeneration + *curr.HeatPowerGeneration) / 2
			heatKWh += avg * dt / 3600 / 1000
		}
		if prev.HeatPowerConsumption != nil && curr.HeatPowerConsumption != nil {
			avg := (*prev.HeatPowerConsumption + *curr.HeatPowerConsumption) / 2
			consKWh += avg * dt / 3600 / 1000
		}
		if curr.HPStatus != nil && *curr.HPStatus == "On" {
			runtimeSec += dt
		}
	}

	cop := 0.0
	if consKWh > 0 {
		cop = heatKWh / consKWh
	}

	var tempSum float64
	tempCount := 0
	for _, snap := range snaps {
		if snap.OutdoorTemp != nil {
			tempSum += *snap.OutdoorTemp
			tempCount++
		}
	}
	avgTemp := 0.0
	if tempCount > 0 {
		avgTemp = tempSum / float64(tempCount)
	}

	return &DailySummary{
		Date:                start.Format("2006-01-02"),
		TotalHeatKWh:        heatKWh,
		TotalConsumptionKWh: consKWh,
		AvgCOP:              cop,
		AvgOutdoorTemp:      avgTemp,
		RuntimeHours:        runtimeSec / 3600,
	}, nil
}

// Cleanup deletes snapshots older than retentionDays. Returns the number of
// rows removed.
func (s *Store) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := s.db.Exec(
		"DELETE FROM snapshots WHERE timestamp < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return res.RowsAffected()
}

func asFloatPtr(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func asStringPtr(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}
