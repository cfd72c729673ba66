package ingest

import (
	"github.com/OlsenJo/data-extract-app/internal/run"
)

// ShipmentRecord is one validated row of an operationally-available capacity
// report, attributed to the unit it came from. Quantity fields are nil when
// the source cell was empty.
type ShipmentRecord struct {
	Loc                    string
	LocZone                string
	LocName                string
	LocPurpose             string
	MeasureBasis           string
	OperCapacity           *float64
	DesignCapacity         *float64
	ScheduledQty           *float64
	OperationallyAvailable *float64
	TotalScheduled         *float64
	Unit                   run.Unit
}

// Row rejection reason codes.
const (
	ReasonColumnCount     = "column_count"
	ReasonMalformedRow    = "malformed_row"
	ReasonMissingRequired = "missing_required"
	ReasonNonNumeric      = "non_numeric"
	ReasonNegativeValue   = "negative_value"
)

// RejectedRow records one data row that failed validation.
type RejectedRow struct {
	Line   int    `json:"line"` // 1-based data row number, header excluded
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// ValidationResult is the outcome of validating one payload. It is not
// modified after Validate returns it.
type ValidationResult struct {
	Unit     run.Unit
	Accepted []ShipmentRecord
	Rejected []RejectedRow
}
