// Package ephemeris provides domain.EphemerisProvider implementations.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ErrUnsupportedBody is returned for bodies a provider has no theory for.
var ErrUnsupportedBody = errors.New("ephemeris: unsupported body")

// ErrOutOfRange is returned for instants outside a provider's validity
// window.
var ErrOutOfRange = errors.New("ephemeris: instant out of range")

// AnalyticTolerance is the stated accuracy of Analytic in degrees.
const AnalyticTolerance = 0.01

// pluto's series is fitted to the modern era.
var (
	plutoFrom = time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)
	plutoTo   = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Analytic computes geometric positions of date from mean orbital elements
// with the principal periodic terms for Jupiter, Saturn and Uranus, the
// truncated ELP lunar series for the Moon, a trigonometric series for Pluto,
// the mean lunar node and the mean lunar apogee (Lilith). Instants are
// shifted from UT to dynamical time first. It does no I/O. Chiron is not
// supported.
type Analytic struct{}

// NewAnalytic returns the built-in provider.
func NewAnalytic() *Analytic { return &Analytic{} }

var _ domain.EphemerisProvider = (*Analytic)(nil)

// Tolerance implements domain.EphemerisProvider.
func (a *Analytic) Tolerance() float64 { return AnalyticTolerance }

// Position implements domain.EphemerisProvider.
func (a *Analytic) Position(ctx context.Context, body domain.Body, at time.Time) (domain.EclipticPosition, error) {
	if err := ctx.Err(); err != nil {
		return domain.EclipticPosition{}, err
	}
	d := dayNumber(at)

	var lon, lat float64
	switch body {
	case domain.Sun:
		lon = sunPosition(d).lon
	case domain.Moon:
		lon, lat = moonPosition(d)
	case domain.Mercury, domain.Venus, domain.Mars, domain.Jupiter, domain.Saturn, domain.Uranus, domain.Neptune:
		lon, lat = planetPosition(body, d)
	case domain.Pluto:
		if at.Before(plutoFrom) || !at.Before(plutoTo) {
			return domain.EclipticPosition{}, fmt.Errorf("ephemeris: pluto at %s: %w", at.Format(time.RFC3339), ErrOutOfRange)
		}
		lon, lat = plutoPosition(d)
	case domain.NorthNode:
		lon = rev(125.1228 - 0.0529538083*d)
	case domain.Lilith:
		lon = rev(263.1862 + 0.111403514*d)
	default:
		return domain.EclipticPosition{}, fmt.Errorf("ephemeris: %s: %w", body, ErrUnsupportedBody)
	}

	return domain.EclipticPosition{Body: body, Longitude: rev(lon), Latitude: lat, At: at}, nil
}

// dayNumber counts days of dynamical time from 1999-12-31 00:00, the zero
// point of the element tables.
func dayNumber(t time.Time) float64 {
	jd := float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9 + 2440587.5
	return jd + deltaT(t)/86400 - 2451543.5
}

// deltaT approximates TT-UT in seconds with the Espenak-Meeus polynomials.
func deltaT(t time.Time) float64 {
	y := float64(t.Year()) + (float64(t.Month())-0.5)/12
	switch {
	case y < 1800 || y >= 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	case y < 1860:
		x := y - 1800
		return 13.72 - 0.332447*x + 0.0068612*x*x + 0.0041116*math.Pow(x, 3) -
			0.00037436*math.Pow(x, 4) + 0.0000121272*math.Pow(x, 5) -
			0.0000001699*math.Pow(x, 6) + 0.000000000875*math.Pow(x, 7)
	case y < 1900:
		x := y - 1860
		return 7.62 + 0.5737*x - 0.251754*x*x + 0.01680668*math.Pow(x, 3) -
			0.0004473624*math.Pow(x, 4) + math.Pow(x, 5)/233174
	case y < 1920:
		x := y - 1900
		return -2.79 + 1.494119*x - 0.0598939*x*x + 0.0061966*math.Pow(x, 3) - 0.000197*math.Pow(x, 4)
	case y < 1941:
		x := y - 1920
		return 21.20 + 0.84493*x - 0.076100*x*x + 0.0020936*math.Pow(x, 3)
	case y < 1961:
		x := y - 1950
		return 29.07 + 0.407*x - x*x/233 + math.Pow(x, 3)/2547
	case y < 1986:
		x := y - 1975
		return 45.45 + 1.067*x - x*x/260 - math.Pow(x, 3)/718
	case y < 2005:
		x := y - 2000
		return 63.86 + 0.3345*x - 0.060374*x*x + 0.0017275*math.Pow(x, 3) +
			0.000651814*math.Pow(x, 4) + 0.00002373599*math.Pow(x, 5)
	case y < 2050:
		x := y - 2000
		return 62.92 + 0.32217*x + 0.005589*x*x
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	}
}

type elements struct {
	N, i, w, a, e, M float64
}

type elementRates struct {
	base, rate elements
}

func (r elementRates) at(d float64) elements {
	return elements{
		N: r.base.N + r.rate.N*d,
		i: r.base.i + r.rate.i*d,
		w: r.base.w + r.rate.w*d,
		a: r.base.a + r.rate.a*d,
		e: r.base.e + r.rate.e*d,
		M: r.base.M + r.rate.M*d,
	}
}

var planetElements = map[domain.Body]elementRates{
	domain.Mercury: {
		base: elements{N: 48.3313, i: 7.0047, w: 29.1241, a: 0.387098, e: 0.205635, M: 168.6562},
		rate: elements{N: 3.24587e-5, i: 5.00e-8, w: 1.01444e-5, e: 5.59e-10, M: 4.0923344368},
	},
	domain.Venus: {
		base: elements{N: 76.6799, i: 3.3946, w: 54.8910, a: 0.723330, e: 0.006773, M: 48.0052},
		rate: elements{N: 2.46590e-5, i: 2.75e-8, w: 1.38374e-5, e: -1.302e-9, M: 1.6021302244},
	},
	domain.Mars: {
		base: elements{N: 49.5574, i: 1.8497, w: 286.5016, a: 1.523688, e: 0.093405, M: 18.6021},
		rate: elements{N: 2.11081e-5, i: -1.78e-8, w: 2.92961e-5, e: 2.516e-9, M: 0.5240207766},
	},
	domain.Jupiter: {
		base: elements{N: 100.4542, i: 1.3030, w: 273.8777, a: 5.20256, e: 0.048498, M: 19.8950},
		rate: elements{N: 2.76854e-5, i: -1.557e-7, w: 1.64505e-5, e: 4.469e-9, M: 0.0830853001},
	},
	domain.Saturn: {
		base: elements{N: 113.6634, i: 2.4886, w: 339.3939, a: 9.55475, e: 0.055546, M: 316.9670},
		rate: elements{N: 2.38980e-5, i: -1.081e-7, w: 2.97661e-5, e: -9.499e-9, M: 0.0334442282},
	},
	domain.Uranus: {
		base: elements{N: 74.0005, i: 0.7733, w: 96.6612, a: 19.18171, e: 0.047318, M: 142.5905},
		rate: elements{N: 1.3978e-5, i: 1.9e-8, w: 3.0565e-5, a: -1.55e-8, e: 7.45e-9, M: 0.011725806},
	},
	domain.Neptune: {
		base: elements{N: 131.7806, i: 1.7700, w: 272.8461, a: 30.05826, e: 0.008606, M: 260.2471},
		rate: elements{N: 3.0173e-5, i: -2.55e-7, w: -6.027e-6, a: 3.313e-8, e: 2.15e-9, M: 0.005995147},
	},
}

var sunElements = elementRates{
	base: elements{w: 282.9404, a: 1, e: 0.016709, M: 356.0470},
	rate: elements{w: 4.70935e-5, e: -1.151e-9, M: 0.9856002585},
}

type sun struct {
	lon, r, M, w float64
}

func sunPosition(d float64) sun {
	el := sunElements.at(d)
	v, r := trueAnomaly(el)
	return sun{lon: rev(v + el.w), r: r, M: el.M, w: el.w}
}

func sunRect(d float64) (x, y float64) {
	s := sunPosition(d)
	return s.r * cosd(s.lon), s.r * sind(s.lon)
}

// trueAnomaly solves Kepler's equation for el and returns the true anomaly
// in degrees and the radius vector in el.a units.
func trueAnomaly(el elements) (v, r float64) {
	M := rev(el.M) * deg2rad
	e := el.e
	E := M + e*math.Sin(M)*(1+e*math.Cos(M))
	for k := 0; k < 50; k++ {
		next := E - (E-e*math.Sin(E)-M)/(1-e*math.Cos(E))
		if math.Abs(next-E) < 1e-12 {
			E = next
			break
		}
		E = next
	}
	xv := el.a * (math.Cos(E) - e)
	yv := el.a * math.Sqrt(1-e*e) * math.Sin(E)
	return math.Atan2(yv, xv) * rad2deg, math.Hypot(xv, yv)
}

// eclipticOf projects an orbit onto the ecliptic and returns longitude,
// latitude and radius.
func eclipticOf(el elements) (lon, lat, r float64) {
	v, r := trueAnomaly(el)
	vw := v + el.w
	xh := r * (cosd(el.N)*cosd(vw) - sind(el.N)*sind(vw)*cosd(el.i))
	yh := r * (sind(el.N)*cosd(vw) + cosd(el.N)*sind(vw)*cosd(el.i))
	zh := r * (sind(vw) * sind(el.i))
	return rev(math.Atan2(yh, xh) * rad2deg), math.Atan2(zh, math.Hypot(xh, yh)) * rad2deg, r
}

// lunarTerm is one periodic term of the lunar series: multiples of D, M, M'
// and F and the coefficient in millionths of a degree.
type lunarTerm struct {
	D, M, Mm, F int8
	coeff       float64
}

// moonLongitudeTerms and moonLatitudeTerms are the ELP-2000/82 truncation
// published by Meeus (Astronomical Algorithms, ch. 47).
var moonLongitudeTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774}, {2, 0, -1, 0, 1274027}, {2, 0, 0, 0, 658314}, {0, 0, 2, 0, 213618},
	{0, 1, 0, 0, -185116}, {0, 0, 0, 2, -114332}, {2, 0, -2, 0, 58793}, {2, -1, -1, 0, 57066},
	{2, 0, 1, 0, 53322}, {2, -1, 0, 0, 45758}, {0, 1, -1, 0, -40923}, {1, 0, 0, 0, -34720},
	{0, 1, 1, 0, -30383}, {2, 0, 0, -2, 15327}, {0, 0, 1, 2, -12528}, {0, 0, 1, -2, 10980},
	{4, 0, -1, 0, 10675}, {0, 0, 3, 0, 10034}, {4, 0, -2, 0, 8548}, {2, 1, -1, 0, -7888},
	{2, 1, 0, 0, -6766}, {1, 0, -1, 0, -5163}, {1, 1, 0, 0, 4987}, {2, -1, 1, 0, 4036},
	{2, 0, 2, 0, 3994}, {4, 0, 0, 0, 3861}, {2, 0, -3, 0, 3665}, {0, 1, -2, 0, -2689},
	{2, 0, -1, 2, -2602}, {2, -1, -2, 0, 2390}, {1, 0, 1, 0, -2348}, {2, -2, 0, 0, 2236},
	{0, 1, 2, 0, -2120}, {0, 2, 0, 0, -2069}, {2, -2, -1, 0, 2048}, {2, 0, 1, -2, -1773},
	{2, 0, 0, 2, -1595}, {4, -1, -1, 0, 1215}, {0, 0, 2, 2, -1110}, {3, 0, -1, 0, -892},
	{2, 1, 1, 0, -810}, {4, -1, -2, 0, 759}, {0, 2, -1, 0, -713}, {2, 2, -1, 0, -700},
	{2, 1, -2, 0, 691}, {2, -1, 0, -2, 596}, {4, 0, 1, 0, 549}, {0, 0, 4, 0, 537},
	{4, -1, 0, 0, 520}, {1, 0, -2, 0, -487}, {2, 1, 0, -2, -399}, {0, 0, 2, -2, -381},
	{1, 1, 1, 0, 351}, {3, 0, -2, 0, -340}, {4, 0, -3, 0, 330}, {2, -1, 2, 0, 327},
	{0, 2, 1, 0, -323}, {1, 1, -1, 0, 299}, {2, 0, 3, 0, 294},
}

var moonLatitudeTerms = []lunarTerm{
	{0, 0, 0, 1, 5128122}, {0, 0, 1, 1, 280602}, {0, 0, 1, -1, 277693}, {2, 0, 0, -1, 173237},
	{2, 0, -1, 1, 55413}, {2, 0, -1, -1, 46271}, {2, 0, 0, 1, 32573}, {0, 0, 2, 1, 17198},
	{2, 0, 1, -1, 9266}, {0, 0, 2, -1, 8822}, {2, -1, 0, -1, 8216}, {2, 0, -2, -1, 4324},
	{2, 0, 1, 1, 4200}, {2, 1, 0, -1, -3359}, {2, -1, -1, 1, 2463}, {2, -1, 0, 1, 2211},
	{2, -1, -1, -1, 2065}, {0, 1, -1, -1, -1870}, {4, 0, -1, -1, 1828}, {0, 1, 0, 1, -1794},
	{0, 0, 0, 3, -1749}, {0, 1, -1, 1, -1565}, {1, 0, 0, 1, -1491}, {0, 1, 1, 1, -1475},
	{0, 1, 1, -1, -1410}, {0, 1, 0, -1, -1344}, {1, 0, 0, -1, -1335}, {0, 0, 3, 1, 1107},
	{4, 0, 0, -1, 1021}, {4, 0, -1, 1, 833}, {0, 0, 1, -3, 777}, {4, 0, -2, 1, 671},
	{2, 0, 0, -3, 607}, {2, 0, 2, -1, 596}, {2, -1, 1, -1, 491}, {2, 0, -2, 1, -451},
	{0, 0, 3, -1, 439}, {2, 0, 2, 1, 422}, {2, 0, -3, -1, 421}, {2, 1, -1, 1, -366},
	{2, 1, 0, 1, -351}, {4, 0, 0, 1, 331}, {2, -1, 1, 1, 315}, {2, -2, 0, -1, 302},
	{0, 0, 1, 3, -283}, {2, 1, 1, -1, -229}, {1, 1, 0, -1, 223}, {1, 1, 0, 1, 223},
	{0, 1, -2, -1, -220}, {2, 1, -1, -1, -220}, {1, 0, 1, 1, -185}, {2, -1, -2, -1, 181},
	{0, 1, 2, 1, -177}, {4, 0, -2, -1, 176}, {4, -1, -1, -1, 166}, {1, 0, 1, -1, -164},
	{4, 0, 1, -1, 132}, {1, 0, -1, -1, -119}, {4, -1, 0, -1, 115}, {2, -2, 0, 1, 107},
}

func (t lunarTerm) arg(D, M, Mm, F float64) float64 {
	return float64(t.D)*D + float64(t.M)*M + float64(t.Mm)*Mm + float64(t.F)*F
}

// sumLunar evaluates a lunar series. E damps the terms in the Sun's anomaly
// for the decreasing eccentricity of the Earth's orbit.
func sumLunar(terms []lunarTerm, D, M, Mm, F, E float64) float64 {
	var s float64
	for _, t := range terms {
		c := t.coeff
		switch t.M {
		case 1, -1:
			c *= E
		case 2, -2:
			c *= E * E
		}
		s += c * sind(t.arg(D, M, Mm, F))
	}
	return s
}

// moonPosition returns the Moon's geocentric longitude and latitude of date.
func moonPosition(d float64) (lon, lat float64) {
	T := (d - 1.5) / 36525
	T2, T3, T4 := T*T, T*T*T, T*T*T*T

	Lp := 218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000
	D := 297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000
	M := 357.5291092 + 35999.0502909*T - 0.0001536*T2 + T3/24490000
	Mm := 134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000
	F := 93.2720950 + 483202.0175233*T - 0.0036539*T2 - T3/3526000 + T4/863310000
	A1 := 119.75 + 131.849*T
	A2 := 53.09 + 479264.290*T
	A3 := 313.45 + 481266.484*T
	E := 1 - 0.002516*T - 0.0000074*T2

	Lp, D, M, Mm, F = rev(Lp), rev(D), rev(M), rev(Mm), rev(F)

	sl := sumLunar(moonLongitudeTerms, D, M, Mm, F, E) +
		3958*sind(A1) + 1962*sind(Lp-F) + 318*sind(A2)
	sb := sumLunar(moonLatitudeTerms, D, M, Mm, F, E) -
		2235*sind(Lp) + 382*sind(A3) +
		175*sind(A1-F) + 175*sind(A1+F) +
		127*sind(Lp-Mm) - 115*sind(Lp+Mm)

	return rev(Lp + sl/1e6), sb / 1e6
}

func planetPosition(body domain.Body, d float64) (lon, lat float64) {
	el := planetElements[body].at(d)
	hlon, hlat, r := eclipticOf(el)

	Mj := planetElements[domain.Jupiter].at(d).M
	Ms := planetElements[domain.Saturn].at(d).M
	Mu := planetElements[domain.Uranus].at(d).M
	switch body {
	case domain.Jupiter:
		hlon += -0.332*sind(2*Mj-5*Ms-67.6) -
			0.056*sind(2*Mj-2*Ms+21) +
			0.042*sind(3*Mj-5*Ms+21) -
			0.036*sind(Mj-2*Ms) +
			0.022*cosd(Mj-Ms) +
			0.023*sind(2*Mj-3*Ms+52) -
			0.016*sind(Mj-5*Ms-69)
	case domain.Saturn:
		hlon += 0.812*sind(2*Mj-5*Ms-67.6) -
			0.229*cosd(2*Mj-4*Ms-2) +
			0.119*sind(Mj-2*Ms-3) +
			0.046*sind(2*Mj-6*Ms-69) +
			0.014*sind(Mj-3*Ms+32)
		hlat += -0.020*cosd(2*Mj-4*Ms-2) +
			0.018*sind(2*Mj-6*Ms-49)
	case domain.Uranus:
		hlon += 0.040*sind(Ms-2*Mu+6) +
			0.035*sind(Ms-3*Mu+33) -
			0.015*sind(Mj-Mu+20)
	}
	return geocentric(hlon, hlat, r, d)
}

// geocentric shifts a heliocentric ecliptic position to the Earth.
func geocentric(hlon, hlat, r, d float64) (lon, lat float64) {
	xh := r * cosd(hlon) * cosd(hlat)
	yh := r * sind(hlon) * cosd(hlat)
	zh := r * sind(hlat)
	xs, ys := sunRect(d)
	xg, yg, zg := xh+xs, yh+ys, zh
	return rev(math.Atan2(yg, xg) * rad2deg), math.Atan2(zg, math.Hypot(xg, yg)) * rad2deg
}

func plutoPosition(d float64) (lon, lat float64) {
	S := 50.03 + 0.033459652*d
	P := 238.95 + 0.003968789*d

	hlon := 238.9508 + 0.00400703*d -
		19.799*sind(P) + 19.848*cosd(P) +
		0.897*sind(2*P) - 4.956*cosd(2*P) +
		0.610*sind(3*P) + 1.211*cosd(3*P) -
		0.341*sind(4*P) - 0.190*cosd(4*P) +
		0.128*sind(5*P) - 0.034*cosd(5*P) -
		0.038*sind(6*P) + 0.031*cosd(6*P) +
		0.020*sind(S-P) - 0.010*cosd(S-P)
	hlat := -3.9082 -
		5.453*sind(P) - 14.975*cosd(P) +
		3.527*sind(2*P) + 1.673*cosd(2*P) -
		1.051*sind(3*P) + 0.328*cosd(3*P) +
		0.179*sind(4*P) - 0.292*cosd(4*P) +
		0.019*sind(5*P) + 0.100*cosd(5*P) -
		0.031*sind(6*P) - 0.026*cosd(6*P) +
		0.011*cosd(S-P)
	r := 40.72 +
		6.68*sind(P) + 6.90*cosd(P) -
		1.18*sind(2*P) - 0.03*cosd(2*P) +
		0.15*sind(3*P) - 0.14*cosd(3*P)

	// The series is referred to J2000; precess to the equinox of date.
	hlon += 3.82394e-5 * d
	return geocentric(hlon, hlat, r, d)
}

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

func sind(x float64) float64 { return math.Sin(x * deg2rad) }
func cosd(x float64) float64 { return math.Cos(x * deg2rad) }

// rev reduces an angle to [0,360).
func rev(x float64) float64 {
	r := math.Mod(x, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r -= 360
	}
	return r
}
