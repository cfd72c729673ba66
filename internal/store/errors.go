package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError is a transient connectivity failure; the orchestrator may
// retry the unit's transaction.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IntegrityError is a constraint violation, usually the unique key on
// (loc, gas_day, cycle) when a unit is re-run without upsert. Never retried.
type IntegrityError struct {
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("integrity violation (%s): %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("integrity violation: %v", e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// LoadError is any other driver failure. Never retried.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// classify wraps a raw driver error into the pipeline's taxonomy. SQLSTATE
// class 23 is an integrity problem, class 08 a connection problem; transport
// errors and timeouts count as connection problems too.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return &IntegrityError{Constraint: pgErr.ConstraintName, Err: err}
		case strings.HasPrefix(pgErr.Code, "23"):
			return &IntegrityError{Err: err}
		case strings.HasPrefix(pgErr.Code, "08"):
			return &ConnectionError{Err: err}
		}
		return &LoadError{Err: err}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return &ConnectionError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{Err: err}
	}

	return &LoadError{Err: err}
}

// IsRetryable reports whether a load failure may be retried. Only connection
// problems are; integrity and driver errors fail the unit immediately.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
