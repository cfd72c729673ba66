package run

import (
	"fmt"
	"time"
)

// DefaultCycles is the set of intraday report cycles published per gas day.
var DefaultCycles = []int{1, 2, 3, 4, 5}

// Unit identifies one (gas day, cycle) report to fetch and process
// independently of all other units.
type Unit struct {
	GasDay time.Time // date only, midnight UTC
	Cycle  int
}

func (u Unit) String() string {
	return fmt.Sprintf("%s cycle %d", u.GasDay.Format("2006-01-02"), u.Cycle)
}

// MarshalJSON renders the unit as {"gasDay":"YYYY-MM-DD","cycle":N}.
func (u Unit) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"gasDay":%q,"cycle":%d}`, u.GasDay.Format("2006-01-02"), u.Cycle)), nil
}

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnitsForWindow expands a lookback window into processable units, oldest gas
// day first, cycles ascending. The window covers lookbackDays days ending the
// day before now; the current gas day is still being published and is skipped.
func UnitsForWindow(now time.Time, lookbackDays int, cycles []int) []Unit {
	today := Day(now)
	units := make([]Unit, 0, lookbackDays*len(cycles))
	for i := lookbackDays; i >= 1; i-- {
		day := today.AddDate(0, 0, -i)
		for _, c := range cycles {
			units = append(units, Unit{GasDay: day, Cycle: c})
		}
	}
	return units
}

// UnitsForDay expands a single gas day into units, cycles ascending.
func UnitsForDay(day time.Time, cycles []int) []Unit {
	units := make([]Unit, 0, len(cycles))
	for _, c := range cycles {
		units = append(units, Unit{GasDay: Day(day), Cycle: c})
	}
	return units
}
