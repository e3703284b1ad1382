package domain

import (
	"fmt"
	"time"
)

// Simulation timestamps are stored as naive ISO-8601 strings. Metadata
// written by older stores may carry a date-only value.
const (
	SimDateTimeLayout = "2006-01-02T15:04:05"
	SimDateLayout     = "2006-01-02"
)

// Metadata carries the simulation's persisted state.
type Metadata struct {
	CurrentDate string `db:"current_date" json:"current_date"`
}

// NewMetadata returns metadata anchored at the given time.
func NewMetadata(t time.Time) Metadata {
	return Metadata{CurrentDate: FormatSimTime(t)}
}

// ParseSimTime parses a stored simulation timestamp, accepting the
// legacy date-only layout as midnight.
func ParseSimTime(s string) (time.Time, error) {
	if t, err := time.Parse(SimDateTimeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(SimDateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("malformed simulation timestamp %q", s)
}

// FormatSimTime renders a time in the stored ISO layout.
func FormatSimTime(t time.Time) string {
	return t.Format(SimDateTimeLayout)
}
