package models

import (
	"fmt"
	"time"
)

// Offsets reported by the lookup service always fall inside this range.
const (
	MinOffsetHours = -12
	MaxOffsetHours = 14
)

// TimezoneRecord is the part of a lookup response the clock table needs
type TimezoneRecord struct {
	Requested   string    `json:"requested"`   // zone identifier sent in the request
	Zone        string    `json:"zone"`        // zone identifier echoed by the service
	Hour        string    `json:"hour"`        // 12-hour clock, zero padded
	Minutes     string    `json:"minutes"`     // zero padded
	Seconds     string    `json:"seconds"`     // zero padded
	AmPm        string    `json:"amPm"`        // AM or PM
	OffsetHours int8      `json:"offsetHours"` // whole hours from UTC
	FetchedAt   time.Time `json:"fetchedAt"`
}

// CurrentTime formats the record's local time as HH:MM:SS AM/PM
func (r TimezoneRecord) CurrentTime() string {
	return fmt.Sprintf("%s:%s:%s %s", r.Hour, r.Minutes, r.Seconds, r.AmPm)
}

// Row converts the record into a table row
func (r TimezoneRecord) Row() OutputRow {
	return OutputRow{
		Offset:      r.OffsetHours,
		Zone:        r.Zone,
		CurrentTime: r.CurrentTime(),
	}
}

// OutputRow is a single line of the rendered clock table
type OutputRow struct {
	Offset      int8   `json:"offset"`
	Zone        string `json:"zone"`
	CurrentTime string `json:"currentTime"`
}
