package chart

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// FixedObliquity is the rounded J2000 obliquity used when epoch correction
// is switched off.
const FixedObliquity = 23.439

// polarTolerance is how close to a pole the Ascendant is treated as
// undefined.
const polarTolerance = 1e-6

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// Angles carries the chart angles and the inputs house systems may need.
type Angles struct {
	Ascendant float64
	Midheaven float64
	RAMC      float64
	Latitude  float64
	Obliquity float64
}

// Descendant is the point opposite the Ascendant.
func (a Angles) Descendant() float64 { return NormalizeLongitude(a.Ascendant + 180) }

// ImumCoeli is the point opposite the Midheaven.
func (a Angles) ImumCoeli() float64 { return NormalizeLongitude(a.Midheaven + 180) }

// ValidateCoordinates rejects latitudes outside [-90,90], longitudes outside
// [-180,180] and non-finite values.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("chart: non-finite coordinates: %w", domain.ErrInvalidCoordinates)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("chart: latitude %.6f out of range: %w", lat, domain.ErrInvalidCoordinates)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("chart: longitude %.6f out of range: %w", lon, domain.ErrInvalidCoordinates)
	}
	return nil
}

// MeanObliquity returns the mean obliquity of the ecliptic in degrees for
// the Julian Date jd, linear in centuries from J2000.
func MeanObliquity(jd float64) float64 {
	return 23.439291 - 0.0130042*JulianCenturies(jd)
}

// LocalSiderealTime shifts Greenwich sidereal time (hours) by an east
// longitude in degrees. The result is in [0,24).
func LocalSiderealTime(gst, longitude float64) float64 {
	return wrap(gst+longitude/15, 24)
}

// RAMC is the right ascension of the meridian in degrees.
func RAMC(lst float64) float64 {
	return NormalizeLongitude(lst * 15)
}

// Ascendant returns the ecliptic longitude rising on the eastern horizon.
// It fails with ErrDegenerateAscendant at the poles and wherever the
// horizon and ecliptic coincide.
func Ascendant(ramc, latitude, obliquity float64) (float64, error) {
	if math.Abs(latitude) >= 90-polarTolerance {
		return 0, fmt.Errorf("chart: ascendant at latitude %.6f: %w", latitude, domain.ErrDegenerateAscendant)
	}
	r := ramc * deg2rad
	e := obliquity * deg2rad
	y := math.Cos(r)
	x := -(math.Sin(r)*math.Cos(e) + math.Tan(latitude*deg2rad)*math.Sin(e))
	if math.Abs(x) < 1e-12 && math.Abs(y) < 1e-12 {
		return 0, fmt.Errorf("chart: ascendant undefined at ramc %.6f latitude %.6f: %w", ramc, latitude, domain.ErrDegenerateAscendant)
	}
	asc := math.Atan2(y, x) * rad2deg
	if math.IsNaN(asc) || math.IsInf(asc, 0) {
		return 0, fmt.Errorf("chart: ascendant not finite: %w", domain.ErrDegenerateAscendant)
	}
	return NormalizeLongitude(asc), nil
}

// Midheaven returns the ecliptic longitude culminating on the meridian:
// tan MC = tan RAMC / cos ε, placed in the half selected by cos RAMC.
func Midheaven(ramc, obliquity float64) float64 {
	r := ramc * deg2rad
	mc := math.Atan2(math.Sin(r), math.Cos(r)*math.Cos(obliquity*deg2rad)) * rad2deg
	return NormalizeLongitude(mc)
}

// ComputeAngles derives both angles from local sidereal time (hours),
// geographic latitude and obliquity.
func ComputeAngles(lst, latitude, obliquity float64) (Angles, error) {
	ramc := RAMC(lst)
	asc, err := Ascendant(ramc, latitude, obliquity)
	if err != nil {
		return Angles{}, err
	}
	return Angles{
		Ascendant: asc,
		Midheaven: Midheaven(ramc, obliquity),
		RAMC:      ramc,
		Latitude:  latitude,
		Obliquity: obliquity,
	}, nil
}
