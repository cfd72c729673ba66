// Package store persists validated shipment records in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS gas_shipments (
    id SERIAL PRIMARY KEY,
    loc TEXT NOT NULL,
    loc_zone TEXT,
    loc_name TEXT,
    loc_purpose TEXT,
    measure_basis TEXT,
    oper_capacity NUMERIC,
    design_capacity NUMERIC,
    scheduled_qty NUMERIC,
    operationally_available NUMERIC,
    total_scheduled NUMERIC,
    gas_day DATE NOT NULL,
    cycle INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (loc, gas_day, cycle)
);

CREATE INDEX IF NOT EXISTS idx_gas_shipments_gas_day ON gas_shipments (gas_day);
CREATE INDEX IF NOT EXISTS idx_gas_shipments_loc ON gas_shipments (loc);
`

// Options tunes the store.
type Options struct {
	MaxConns  int32 // pool size; <= 0 keeps the pgx default
	BatchSize int   // rows per wire batch inside a transaction; <= 0 means 1000
	Upsert    bool  // refresh existing rows instead of failing on duplicates
}

// Store owns the connection pool and the gas_shipments schema.
type Store struct {
	pool      *pgxpool.Pool
	logger    *log.Logger
	batchSize int
	upsert    bool
}

// New connects a pool and verifies the database is reachable.
func New(ctx context.Context, dsn string, opts Options, logger *log.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, classify(fmt.Errorf("create pool: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(fmt.Errorf("ping database: %w", err))
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	return &Store{
		pool:      pool,
		logger:    logger,
		batchSize: batchSize,
		upsert:    opts.Upsert,
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the gas_shipments table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return classify(fmt.Errorf("initialize schema: %w", err))
	}
	s.logger.Printf("database schema ready")
	return nil
}
