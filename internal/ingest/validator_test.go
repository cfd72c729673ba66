package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/OlsenJo/data-extract-app/internal/run"
)

var testUnit = run.Unit{GasDay: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Cycle: 2}

const validHeader = "Loc,Loc Zone,Loc Name,Loc Purpose,Meas Basis Desc,Oper Capacity,Design Capacity,Scheduled Qty,Operationally Available,Total Scheduled"

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator("")
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}
	return v
}

func TestValidateAcceptsRows(t *testing.T) {
	body := validHeader + "\n" +
		`100001,North,"STATION 1",Receipt,MMBTU,"1,234.5",2000,800,434.5,800` + "\n" +
		"100002,South,STATION 2,Delivery,MMBTU,,1500,,,\n"

	v := newTestValidator(t)
	res, err := v.Validate(testUnit, []byte(body))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Rejected) != 0 {
		t.Fatalf("Expected no rejected rows, got %d: %v", len(res.Rejected), res.Rejected)
	}
	if len(res.Accepted) != 2 {
		t.Fatalf("Expected 2 accepted rows, got %d", len(res.Accepted))
	}

	first := res.Accepted[0]
	if first.Loc != "100001" {
		t.Errorf("Loc = %q, want %q", first.Loc, "100001")
	}
	if first.LocName != "STATION 1" {
		t.Errorf("LocName = %q, want %q", first.LocName, "STATION 1")
	}
	// Thousands separators are stripped before parsing.
	if first.OperCapacity == nil || *first.OperCapacity != 1234.5 {
		t.Errorf("OperCapacity = %v, want 1234.5", first.OperCapacity)
	}
	if first.Unit != testUnit {
		t.Errorf("Unit = %v, want %v", first.Unit, testUnit)
	}

	second := res.Accepted[1]
	if second.OperCapacity != nil {
		t.Errorf("Expected nil OperCapacity for an empty cell, got %v", *second.OperCapacity)
	}
	if second.DesignCapacity == nil || *second.DesignCapacity != 1500 {
		t.Errorf("DesignCapacity = %v, want 1500", second.DesignCapacity)
	}
}

func TestValidateRejectsRows(t *testing.T) {
	tests := []struct {
		name       string
		row        string
		wantReason string
		wantDetail string
	}{
		{
			name:       "negative quantity",
			row:        "100001,North,STATION 1,Receipt,MMBTU,-5,1200,800,200,800",
			wantReason: ReasonNegativeValue,
			wantDetail: `field Oper Capacity: negative value "-5"`,
		},
		{
			name:       "non numeric quantity",
			row:        "100001,North,STATION 1,Receipt,MMBTU,1000,N/A,800,200,800",
			wantReason: ReasonNonNumeric,
			wantDetail: `field Design Capacity: invalid number "N/A"`,
		},
		{
			name:       "infinity is not a quantity",
			row:        "100001,North,STATION 1,Receipt,MMBTU,Inf,1200,800,200,800",
			wantReason: ReasonNonNumeric,
			wantDetail: `field Oper Capacity: invalid number "Inf"`,
		},
		{
			name:       "too few columns",
			row:        "100001,North,STATION 1",
			wantReason: ReasonColumnCount,
			wantDetail: "row has 3 columns, want 10",
		},
		{
			name:       "empty Loc",
			row:        ",North,STATION 1,Receipt,MMBTU,1000,1200,800,200,800",
			wantReason: ReasonMissingRequired,
			wantDetail: "required field Loc is empty",
		},
	}

	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validHeader + "\n" + tt.row + "\n"
			res, err := v.Validate(testUnit, []byte(body))
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if len(res.Accepted) != 0 {
				t.Errorf("Expected 0 accepted rows, got %d", len(res.Accepted))
			}
			if len(res.Rejected) != 1 {
				t.Fatalf("Expected 1 rejected row, got %d", len(res.Rejected))
			}
			rej := res.Rejected[0]
			if rej.Line != 1 {
				t.Errorf("Line = %d, want 1", rej.Line)
			}
			if rej.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", rej.Reason, tt.wantReason)
			}
			if rej.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", rej.Detail, tt.wantDetail)
			}
		})
	}
}

// TestValidateIsolatesBadRows checks that a rejected row does not take its
// neighbors down with it.
func TestValidateIsolatesBadRows(t *testing.T) {
	body := validHeader + "\n" +
		"100001,North,STATION 1,Receipt,MMBTU,1000,1200,800,200,800\n" +
		"garbage\n" +
		"100003,South,STATION 3,Delivery,MMBTU,500,600,100,400,100\n"

	v := newTestValidator(t)
	res, err := v.Validate(testUnit, []byte(body))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Accepted) != 2 {
		t.Errorf("Expected 2 accepted rows, got %d", len(res.Accepted))
	}
	if len(res.Rejected) != 1 {
		t.Fatalf("Expected 1 rejected row, got %d", len(res.Rejected))
	}
	// Data rows are numbered from 1, header excluded.
	if res.Rejected[0].Line != 2 {
		t.Errorf("Line = %d, want 2", res.Rejected[0].Line)
	}
	if res.Rejected[0].Reason != ReasonColumnCount {
		t.Errorf("Reason = %q, want %q", res.Rejected[0].Reason, ReasonColumnCount)
	}
}

func TestValidateHeaderOnly(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(testUnit, []byte(validHeader+"\n"))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Accepted) != 0 || len(res.Rejected) != 0 {
		t.Errorf("Expected an empty result, got %d accepted, %d rejected", len(res.Accepted), len(res.Rejected))
	}
}

func TestValidateSchemaMismatch(t *testing.T) {
	// One required column dropped, one stray column added.
	body := "Loc,Loc Zone,Loc Name,Loc Purpose,Meas Basis Desc,Oper Capacity,Design Capacity,Scheduled Qty,Operationally Available,Posting Status\n"

	v := newTestValidator(t)
	res, err := v.Validate(testUnit, []byte(body))
	if res != nil {
		t.Errorf("Expected nil result on schema mismatch, got %+v", res)
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "Total Scheduled" {
		t.Errorf("Missing = %v, want [Total Scheduled]", schemaErr.Missing)
	}
	if len(schemaErr.Unknown) != 1 || schemaErr.Unknown[0] != "Posting Status" {
		t.Errorf("Unknown = %v, want [Posting Status]", schemaErr.Unknown)
	}
}

func TestValidateEmptyBody(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate(testUnit, nil)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError for an empty body, got %v", err)
	}
	if len(schemaErr.Missing) != len(expectedColumns) {
		t.Errorf("Expected all %d columns missing, got %d", len(expectedColumns), len(schemaErr.Missing))
	}
}

func TestValidateStripsBOM(t *testing.T) {
	body := "\xef\xbb\xbf" + validHeader + "\n" +
		"100001,North,STATION 1,Receipt,MMBTU,1000,1200,800,200,800\n"

	v := newTestValidator(t)
	res, err := v.Validate(testUnit, []byte(body))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Accepted) != 1 {
		t.Errorf("Expected 1 accepted row, got %d", len(res.Accepted))
	}
}

func TestValidateColumnOrderIndependent(t *testing.T) {
	body := "Total Scheduled,Loc,Loc Zone,Loc Name,Loc Purpose,Meas Basis Desc,Oper Capacity,Design Capacity,Scheduled Qty,Operationally Available\n" +
		"800,100001,North,STATION 1,Receipt,MMBTU,1000,1200,750,200\n"

	v := newTestValidator(t)
	res, err := v.Validate(testUnit, []byte(body))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Accepted) != 1 {
		t.Fatalf("Expected 1 accepted row, got %d", len(res.Accepted))
	}

	rec := res.Accepted[0]
	if rec.Loc != "100001" {
		t.Errorf("Loc = %q, want %q", rec.Loc, "100001")
	}
	if rec.TotalScheduled == nil || *rec.TotalScheduled != 800 {
		t.Errorf("TotalScheduled = %v, want 800", rec.TotalScheduled)
	}
	if rec.ScheduledQty == nil || *rec.ScheduledQty != 750 {
		t.Errorf("ScheduledQty = %v, want 750", rec.ScheduledQty)
	}
}

func TestValidateWindows1252(t *testing.T) {
	v, err := NewValidator("windows-1252")
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}

	// 0xC9 is É in Windows-1252.
	body := validHeader + "\n" +
		"100001,North,STATION \xc9,Receipt,MMBTU,1000,1200,800,200,800\n"

	res, err := v.Validate(testUnit, []byte(body))
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Accepted) != 1 {
		t.Fatalf("Expected 1 accepted row, got %d", len(res.Accepted))
	}
	if got := res.Accepted[0].LocName; got != "STATION É" {
		t.Errorf("LocName = %q, want %q", got, "STATION É")
	}
}

func TestNewValidatorRejectsUnknownEncoding(t *testing.T) {
	if _, err := NewValidator("koi8-r"); err == nil {
		t.Error("Expected error for an unsupported encoding, got nil")
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Missing: []string{"Loc"}, Unknown: []string{"Station"}}
	want := "unexpected CSV header: missing columns [Loc], unknown columns [Station]"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
