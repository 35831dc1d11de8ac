package domain

import "fmt"

// CivilDate is a calendar date as written on a birth certificate.
type CivilDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a civil clock reading with minute resolution.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// BirthMoment is the raw input of a chart calculation.
//
// Zone (an IANA name such as "Europe/Paris") and UTCOffsetMinutes are
// mutually exclusive. When neither is set the civil time is read as UTC.
// A nil Time means the birth time is unknown; the resulting chart is
// flagged reduced-precision.
type BirthMoment struct {
	Date             CivilDate  `json:"date"`
	Time             *TimeOfDay `json:"time,omitempty"`
	Zone             string     `json:"zone,omitempty"`
	UTCOffsetMinutes *int       `json:"utc_offset_minutes,omitempty"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
}

// HasTime reports whether the birth time is known.
func (b BirthMoment) HasTime() bool { return b.Time != nil }
