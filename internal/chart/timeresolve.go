package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

const (
	unixEpochJD = 2440587.5
	j2000JD     = 2451545.0

	// maxOffsetMinutes bounds fixed UTC offsets to ±18h, the range Go's
	// time package and ISO 8601 both accept.
	maxOffsetMinutes = 18 * 60
)

// ResolvedMoment is a BirthMoment pinned to an absolute instant.
type ResolvedMoment struct {
	UTC       time.Time
	JulianDay float64
	// GreenwichSiderealTime is in hours, [0,24).
	GreenwichSiderealTime float64
	// ReducedPrecision is set when the birth time was unknown and the
	// instant is local noon.
	ReducedPrecision bool
}

// ResolveMoment validates the civil date and time of b and converts them to
// UTC. A missing time of day resolves to local noon and sets
// ReducedPrecision. A wall-clock time skipped by a daylight-saving change
// is rejected rather than shifted.
func ResolveMoment(b domain.BirthMoment) (ResolvedMoment, error) {
	d := b.Date
	if d.Year < 1 || d.Year > 9999 {
		return ResolvedMoment{}, fmt.Errorf("chart: year %d out of range: %w", d.Year, domain.ErrInvalidBirthMoment)
	}
	if d.Month < 1 || d.Month > 12 {
		return ResolvedMoment{}, fmt.Errorf("chart: month %d out of range: %w", d.Month, domain.ErrInvalidBirthMoment)
	}

	hour, minute := 12, 0
	if b.HasTime() {
		if b.Time.Hour < 0 || b.Time.Hour > 23 || b.Time.Minute < 0 || b.Time.Minute > 59 {
			return ResolvedMoment{}, fmt.Errorf("chart: time %s out of range: %w", b.Time, domain.ErrInvalidBirthMoment)
		}
		hour, minute = b.Time.Hour, b.Time.Minute
	}

	loc, err := resolveLocation(b)
	if err != nil {
		return ResolvedMoment{}, err
	}

	local := time.Date(d.Year, time.Month(d.Month), d.Day, hour, minute, 0, 0, loc)
	// time.Date normalises overflow (Feb 30 -> Mar 2), so a round trip
	// catches dates that do not exist.
	if local.Year() != d.Year || int(local.Month()) != d.Month || local.Day() != d.Day {
		return ResolvedMoment{}, fmt.Errorf("chart: date %s does not exist: %w", d, domain.ErrInvalidBirthMoment)
	}
	// Times inside a spring-forward gap come back moved past the gap.
	if local.Hour() != hour || local.Minute() != minute {
		return ResolvedMoment{}, fmt.Errorf("chart: %s %02d:%02d does not exist in %s: %w",
			d, hour, minute, loc, domain.ErrInvalidBirthMoment)
	}

	utc := local.UTC()
	jd := JulianDay(utc)
	return ResolvedMoment{
		UTC:                   utc,
		JulianDay:             jd,
		GreenwichSiderealTime: GreenwichSiderealTime(jd),
		ReducedPrecision:      !b.HasTime(),
	}, nil
}

func resolveLocation(b domain.BirthMoment) (*time.Location, error) {
	switch {
	case b.Zone != "" && b.UTCOffsetMinutes != nil:
		return nil, fmt.Errorf("chart: zone and utc offset are mutually exclusive: %w", domain.ErrInvalidBirthMoment)
	case b.Zone != "":
		loc, err := time.LoadLocation(b.Zone)
		if err != nil {
			return nil, fmt.Errorf("chart: load zone %q: %w: %w", b.Zone, domain.ErrInvalidBirthMoment, err)
		}
		return loc, nil
	case b.UTCOffsetMinutes != nil:
		off := *b.UTCOffsetMinutes
		if off < -maxOffsetMinutes || off > maxOffsetMinutes {
			return nil, fmt.Errorf("chart: utc offset %d minutes out of range: %w", off, domain.ErrInvalidBirthMoment)
		}
		return time.FixedZone(formatOffset(off), off*60), nil
	default:
		return time.UTC, nil
	}
}

func formatOffset(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, minutes/60, minutes%60)
}

// JulianDay returns the Julian Date of t.
func JulianDay(t time.Time) float64 {
	return float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9 + unixEpochJD
}

// JulianCenturies returns centuries of 36525 days since J2000.0.
func JulianCenturies(jd float64) float64 {
	return (jd - j2000JD) / 36525
}

// GreenwichSiderealTime returns Greenwich mean sidereal time in hours for
// the Julian Date jd (IAU 1982 expression).
func GreenwichSiderealTime(jd float64) float64 {
	t := JulianCenturies(jd)
	deg := 280.46061837 +
		360.98564736629*(jd-j2000JD) +
		0.000387933*t*t -
		t*t*t/38710000
	return wrap(NormalizeLongitude(deg)/15, 24)
}

func wrap(v, mod float64) float64 {
	r := math.Mod(v, mod)
	if r < 0 {
		r += mod
	}
	if r >= mod {
		r -= mod
	}
	return r
}
