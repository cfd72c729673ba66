// Package ingest validates raw capacity report payloads and turns them into
// typed shipment records.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/OlsenJo/data-extract-app/internal/run"
)

// expectedColumns is the exact header set of an operationally-available
// capacity report. Order in the file does not matter.
var expectedColumns = []string{
	"Loc",
	"Loc Zone",
	"Loc Name",
	"Loc Purpose",
	"Meas Basis Desc",
	"Oper Capacity",
	"Design Capacity",
	"Scheduled Qty",
	"Operationally Available",
	"Total Scheduled",
}

// SchemaError reports a payload whose header does not match the expected
// column set. The whole payload is rejected; no rows are accepted.
type SchemaError struct {
	Missing []string
	Unknown []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns %v", e.Missing))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown columns %v", e.Unknown))
	}
	if len(parts) == 0 {
		return "unexpected CSV header"
	}
	return "unexpected CSV header: " + strings.Join(parts, ", ")
}

// rowError describes why a single data row was rejected.
type rowError struct {
	reason string
	detail string
}

func (e *rowError) Error() string {
	return e.detail
}

// columnIndex holds the header position of every expected column.
type columnIndex struct {
	loc, locZone, locName, locPurpose, measureBasis                   int
	operCapacity, designCapacity, scheduledQty, operAvail, totalSched int
}

// Validator parses raw CSV payloads into typed shipment records.
type Validator struct {
	encoding string
}

// NewValidator creates a validator. encoding selects the source charset:
// "utf-8" (default), "windows-1252" or "windows-1251".
func NewValidator(encoding string) (*Validator, error) {
	switch encoding {
	case "", "utf-8", "windows-1252", "windows-1251":
	default:
		return nil, fmt.Errorf("unsupported source encoding: %s", encoding)
	}
	return &Validator{encoding: encoding}, nil
}

// Validate parses body as a delimited report for unit. Row-level problems are
// collected into the result and never abort the unit; only a header mismatch
// rejects the payload wholesale with SchemaError. A header-only payload
// yields an empty result.
func (v *Validator) Validate(unit run.Unit, body []byte) (*ValidationResult, error) {
	// The source occasionally prefixes a UTF-8 BOM.
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	var reader io.Reader = bytes.NewReader(body)
	switch v.encoding {
	case "windows-1252":
		reader = charmap.Windows1252.NewDecoder().Reader(reader)
	case "windows-1251":
		reader = charmap.Windows1251.NewDecoder().Reader(reader)
	}

	cr := csv.NewReader(reader)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // row width is checked per row for isolation

	header, err := cr.Read()
	if err != nil {
		// No readable header row at all; treat as a schema mismatch.
		return nil, &SchemaError{Missing: append([]string(nil), expectedColumns...)}
	}

	headerIdx := make(map[string]int, len(header))
	for i, name := range header {
		headerIdx[strings.TrimSpace(name)] = i
	}

	if err := checkSchema(headerIdx); err != nil {
		return nil, err
	}

	ci := columnIndex{
		loc:            headerIdx["Loc"],
		locZone:        headerIdx["Loc Zone"],
		locName:        headerIdx["Loc Name"],
		locPurpose:     headerIdx["Loc Purpose"],
		measureBasis:   headerIdx["Meas Basis Desc"],
		operCapacity:   headerIdx["Oper Capacity"],
		designCapacity: headerIdx["Design Capacity"],
		scheduledQty:   headerIdx["Scheduled Qty"],
		operAvail:      headerIdx["Operationally Available"],
		totalSched:     headerIdx["Total Scheduled"],
	}

	res := &ValidationResult{Unit: unit}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedRow{
				Line:   line,
				Reason: ReasonMalformedRow,
				Detail: err.Error(),
			})
			continue
		}

		rec, rerr := validateRow(unit, row, ci)
		if rerr != nil {
			res.Rejected = append(res.Rejected, RejectedRow{
				Line:   line,
				Reason: rerr.reason,
				Detail: rerr.detail,
			})
			continue
		}
		res.Accepted = append(res.Accepted, rec)
	}

	return res, nil
}

// checkSchema compares the header against the expected column set.
func checkSchema(headerIdx map[string]int) error {
	known := make(map[string]bool, len(expectedColumns))
	var missing []string
	for _, col := range expectedColumns {
		known[col] = true
		if _, ok := headerIdx[col]; !ok {
			missing = append(missing, col)
		}
	}

	var unknown []string
	for name := range headerIdx {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	if len(missing) > 0 || len(unknown) > 0 {
		return &SchemaError{Missing: missing, Unknown: unknown}
	}
	return nil
}

// validateRow converts one data row into a record, or explains why it cannot.
func validateRow(unit run.Unit, row []string, ci columnIndex) (ShipmentRecord, *rowError) {
	if len(row) < len(expectedColumns) {
		return ShipmentRecord{}, &rowError{
			reason: ReasonColumnCount,
			detail: fmt.Sprintf("row has %d columns, want %d", len(row), len(expectedColumns)),
		}
	}

	loc := strings.TrimSpace(row[ci.loc])
	if loc == "" {
		return ShipmentRecord{}, &rowError{
			reason: ReasonMissingRequired,
			detail: "required field Loc is empty",
		}
	}

	rec := ShipmentRecord{
		Loc:          loc,
		LocZone:      strings.TrimSpace(row[ci.locZone]),
		LocName:      strings.TrimSpace(row[ci.locName]),
		LocPurpose:   strings.TrimSpace(row[ci.locPurpose]),
		MeasureBasis: strings.TrimSpace(row[ci.measureBasis]),
		Unit:         unit,
	}

	var rerr *rowError
	quantity := func(column string, idx int) *float64 {
		if rerr != nil {
			return nil
		}
		val, e := parseQuantity(column, row[idx])
		if e != nil {
			rerr = e
			return nil
		}
		return val
	}

	rec.OperCapacity = quantity("Oper Capacity", ci.operCapacity)
	rec.DesignCapacity = quantity("Design Capacity", ci.designCapacity)
	rec.ScheduledQty = quantity("Scheduled Qty", ci.scheduledQty)
	rec.OperationallyAvailable = quantity("Operationally Available", ci.operAvail)
	rec.TotalScheduled = quantity("Total Scheduled", ci.totalSched)
	if rerr != nil {
		return ShipmentRecord{}, rerr
	}

	return rec, nil
}

// parseQuantity parses one numeric cell. Empty cells are null; thousands
// separators are stripped. Values must round-trip as finite, non-negative
// float64s; anything else rejects the row rather than being coerced.
func parseQuantity(column, raw string) (*float64, *rowError) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	value = strings.ReplaceAll(value, ",", "")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &rowError{
			reason: ReasonNonNumeric,
			detail: fmt.Sprintf("field %s: invalid number %q", column, raw),
		}
	}
	if f < 0 {
		return nil, &rowError{
			reason: ReasonNegativeValue,
			detail: fmt.Sprintf("field %s: negative value %q", column, raw),
		}
	}
	return &f, nil
}
