package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/OlsenJo/data-extract-app/internal/ingest"
	"github.com/OlsenJo/data-extract-app/internal/run"
)

const insertSQL = `
INSERT INTO gas_shipments (
    loc, loc_zone, loc_name, loc_purpose, measure_basis,
    oper_capacity, design_capacity, scheduled_qty,
    operationally_available, total_scheduled, gas_day, cycle
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const upsertSQL = insertSQL + `
ON CONFLICT (loc, gas_day, cycle) DO UPDATE SET
    loc_zone = EXCLUDED.loc_zone,
    loc_name = EXCLUDED.loc_name,
    loc_purpose = EXCLUDED.loc_purpose,
    measure_basis = EXCLUDED.measure_basis,
    oper_capacity = EXCLUDED.oper_capacity,
    design_capacity = EXCLUDED.design_capacity,
    scheduled_qty = EXCLUDED.scheduled_qty,
    operationally_available = EXCLUDED.operationally_available,
    total_scheduled = EXCLUDED.total_scheduled,
    created_at = CURRENT_TIMESTAMP`

// LoadReport summarizes one unit's transaction.
type LoadReport struct {
	Attempted int // records offered by the validator
	Deduped   int // duplicates dropped before insert
	Inserted  int // rows written (or refreshed in upsert mode)
}

// Load writes all accepted records for one unit in a single transaction:
// every record commits or none do. Inserts go out in bounded wire batches,
// but atomicity stays unit-wide. An empty record set commits a trivial
// transaction.
func (s *Store) Load(ctx context.Context, u run.Unit, records []ingest.ShipmentRecord) (LoadReport, error) {
	report := LoadReport{Attempted: len(records)}

	unique := Dedup(records)
	report.Deduped = len(records) - len(unique)
	if report.Deduped > 0 {
		s.logger.Printf("unit %s: dropped %d duplicate rows before insert", u, report.Deduped)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return report, classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt := insertSQL
	if s.upsert {
		stmt = upsertSQL
	}

	for start := 0; start < len(unique); start += s.batchSize {
		end := start + s.batchSize
		if end > len(unique) {
			end = len(unique)
		}

		b := &pgx.Batch{}
		for _, rec := range unique[start:end] {
			b.Queue(stmt, insertArgs(rec)...)
		}

		br := tx.SendBatch(ctx, b)
		for i := 0; i < b.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return report, classify(fmt.Errorf("insert row: %w", err))
			}
		}
		if err := br.Close(); err != nil {
			return report, classify(fmt.Errorf("close batch: %w", err))
		}
		report.Inserted += end - start
	}

	if err := tx.Commit(ctx); err != nil {
		report.Inserted = 0
		return report, classify(fmt.Errorf("commit transaction: %w", err))
	}
	return report, nil
}

// Dedup drops earlier duplicates of (loc, gas_day, cycle), keeping the last
// occurrence, mirroring the table's unique constraint.
func Dedup(records []ingest.ShipmentRecord) []ingest.ShipmentRecord {
	if len(records) == 0 {
		return records
	}

	type key struct {
		loc    string
		gasDay string
		cycle  int
	}
	recordKey := func(rec ingest.ShipmentRecord) key {
		return key{
			loc:    rec.Loc,
			gasDay: rec.Unit.GasDay.Format("2006-01-02"),
			cycle:  rec.Unit.Cycle,
		}
	}

	last := make(map[key]int, len(records))
	for i, rec := range records {
		last[recordKey(rec)] = i
	}

	out := make([]ingest.ShipmentRecord, 0, len(last))
	for i, rec := range records {
		if last[recordKey(rec)] == i {
			out = append(out, rec)
		}
	}
	return out
}

// insertArgs flattens a record into the insert parameter list. Nil quantity
// pointers become SQL NULLs; the gas day travels as a date-only value.
func insertArgs(rec ingest.ShipmentRecord) []any {
	return []any{
		rec.Loc,
		rec.LocZone,
		rec.LocName,
		rec.LocPurpose,
		rec.MeasureBasis,
		rec.OperCapacity,
		rec.DesignCapacity,
		rec.ScheduledQty,
		rec.OperationallyAvailable,
		rec.TotalScheduled,
		pgtype.Date{Time: rec.Unit.GasDay, Valid: true},
		rec.Unit.Cycle,
	}
}
