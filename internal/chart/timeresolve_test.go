package chart

import (
	"errors"
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

func intPtr(v int) *int { return &v }

func birth(y, m, d, hh, mm int) domain.BirthMoment {
	return domain.BirthMoment{
		Date: domain.CivilDate{Year: y, Month: m, Day: d},
		Time: &domain.TimeOfDay{Hour: hh, Minute: mm},
	}
}

func TestResolveMomentRejectsInvalidInput(t *testing.T) {
	cases := map[string]domain.BirthMoment{
		"feb 30":      birth(2001, 2, 30, 10, 0),
		"feb 29 1900": birth(1900, 2, 29, 10, 0),
		"month 13":    birth(2001, 13, 1, 10, 0),
		"day 0":       birth(2001, 1, 0, 10, 0),
		"year 0":      birth(0, 1, 1, 10, 0),
		"hour 24":     birth(2001, 1, 1, 24, 0),
		"minute 60":   birth(2001, 1, 1, 10, 60),
		"negative":    birth(2001, 1, 1, -1, 0),
	}
	zoneAndOffset := birth(2001, 1, 1, 10, 0)
	zoneAndOffset.Zone = "Europe/Paris"
	zoneAndOffset.UTCOffsetMinutes = intPtr(60)
	cases["zone and offset"] = zoneAndOffset

	badZone := birth(2001, 1, 1, 10, 0)
	badZone.Zone = "Mars/Olympus_Mons"
	cases["unknown zone"] = badZone

	wideOffset := birth(2001, 1, 1, 10, 0)
	wideOffset.UTCOffsetMinutes = intPtr(19 * 60)
	cases["offset too wide"] = wideOffset

	for name, b := range cases {
		if _, err := ResolveMoment(b); !errors.Is(err, domain.ErrInvalidBirthMoment) {
			t.Errorf("%s: want ErrInvalidBirthMoment got %v", name, err)
		}
	}
}

func TestResolveMomentLeapDay(t *testing.T) {
	rm, err := ResolveMoment(birth(2000, 2, 29, 23, 59))
	if err != nil {
		t.Fatalf("ResolveMoment: %v", err)
	}
	want := time.Date(2000, 2, 29, 23, 59, 0, 0, time.UTC)
	if !rm.UTC.Equal(want) {
		t.Fatalf("utc: want=%s got=%s", want, rm.UTC)
	}
	if rm.ReducedPrecision {
		t.Fatal("known time should not be reduced precision")
	}
}

func TestResolveMomentZones(t *testing.T) {
	paris := birth(1990, 7, 1, 12, 0)
	paris.Zone = "Europe/Paris"
	rm, err := ResolveMoment(paris)
	if err != nil {
		t.Fatalf("ResolveMoment: %v", err)
	}
	if want := time.Date(1990, 7, 1, 10, 0, 0, 0, time.UTC); !rm.UTC.Equal(want) {
		t.Fatalf("paris summer time: want=%s got=%s", want, rm.UTC)
	}

	india := birth(2000, 1, 1, 5, 30)
	india.UTCOffsetMinutes = intPtr(330)
	rm, err = ResolveMoment(india)
	if err != nil {
		t.Fatalf("ResolveMoment: %v", err)
	}
	if want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC); !rm.UTC.Equal(want) {
		t.Fatalf("fixed offset: want=%s got=%s", want, rm.UTC)
	}
}

func TestResolveMomentDaylightSaving(t *testing.T) {
	// Clocks in London jumped from 01:00 to 02:00 GMT on 2021-03-28.
	gap := birth(2021, 3, 28, 1, 30)
	gap.Zone = "Europe/London"
	if _, err := ResolveMoment(gap); !errors.Is(err, domain.ErrInvalidBirthMoment) {
		t.Fatalf("01:30 in the spring gap: want ErrInvalidBirthMoment got %v", err)
	}

	after := birth(2021, 3, 28, 2, 30)
	after.Zone = "Europe/London"
	rm, err := ResolveMoment(after)
	if err != nil {
		t.Fatalf("ResolveMoment: %v", err)
	}
	if want := time.Date(2021, 3, 28, 1, 30, 0, 0, time.UTC); !rm.UTC.Equal(want) {
		t.Fatalf("02:30 BST: want=%s got=%s", want, rm.UTC)
	}

	// New York skipped 02:00-02:59 on 2021-03-14.
	ny := birth(2021, 3, 14, 2, 30)
	ny.Zone = "America/New_York"
	if _, err := ResolveMoment(ny); !errors.Is(err, domain.ErrInvalidBirthMoment) {
		t.Fatalf("02:30 New York: want ErrInvalidBirthMoment got %v", err)
	}
}

func TestResolveMomentMissingTime(t *testing.T) {
	b := domain.BirthMoment{Date: domain.CivilDate{Year: 1985, Month: 3, Day: 14}, UTCOffsetMinutes: intPtr(-300)}
	rm, err := ResolveMoment(b)
	if err != nil {
		t.Fatalf("ResolveMoment: %v", err)
	}
	if !rm.ReducedPrecision {
		t.Fatal("missing time must set ReducedPrecision")
	}
	if want := time.Date(1985, 3, 14, 17, 0, 0, 0, time.UTC); !rm.UTC.Equal(want) {
		t.Fatalf("local noon: want=%s got=%s", want, rm.UTC)
	}
}

func TestJulianDayAndSiderealTime(t *testing.T) {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := JulianDay(j2000); jd != 2451545.0 {
		t.Fatalf("JulianDay(J2000): want=2451545 got=%v", jd)
	}
	if jd := JulianDay(time.Unix(0, 0).UTC()); jd != 2440587.5 {
		t.Fatalf("JulianDay(unix epoch): want=2440587.5 got=%v", jd)
	}
	gst := GreenwichSiderealTime(2451545.0)
	if math.Abs(gst-18.697374558) > 1e-8 {
		t.Fatalf("GST(J2000): want=18.697374558 got=%.9f", gst)
	}
	for _, jd := range []float64{2415020.5, 2440000.25, 2460000.75} {
		if g := GreenwichSiderealTime(jd); g < 0 || g >= 24 {
			t.Fatalf("GST(%v)=%v outside [0,24)", jd, g)
		}
	}
}
