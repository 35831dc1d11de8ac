package chart

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// AspectDefinition is one row of the aspect table.
type AspectDefinition struct {
	Type   domain.AspectType
	Angle  float64
	Orb    float64
	Nature domain.AspectNature
	Major  bool
}

var majorAspects = []AspectDefinition{
	{Type: domain.Conjunction, Angle: 0, Orb: 8, Nature: domain.Neutral, Major: true},
	{Type: domain.Sextile, Angle: 60, Orb: 6, Nature: domain.Harmonic, Major: true},
	{Type: domain.Square, Angle: 90, Orb: 8, Nature: domain.Tense, Major: true},
	{Type: domain.Trine, Angle: 120, Orb: 8, Nature: domain.Harmonic, Major: true},
	{Type: domain.Opposition, Angle: 180, Orb: 8, Nature: domain.Tense, Major: true},
}

var minorAspects = []AspectDefinition{
	{Type: domain.SemiSextile, Angle: 30, Orb: 2, Nature: domain.Harmonic},
	{Type: domain.SemiSquare, Angle: 45, Orb: 2, Nature: domain.Tense},
	{Type: domain.Quintile, Angle: 72, Orb: 2, Nature: domain.Creative},
	{Type: domain.Sesquiquadrate, Angle: 135, Orb: 2, Nature: domain.Tense},
	{Type: domain.Biquintile, Angle: 144, Orb: 2, Nature: domain.Creative},
	{Type: domain.Quincunx, Angle: 150, Orb: 3, Nature: domain.Neutral},
}

// AspectTable is an ordered set of aspect definitions. Order is the last
// tie-breaker when two definitions match equally well.
type AspectTable []AspectDefinition

// DefaultAspectTable returns the major aspects, followed by the minor ones
// when minor is set.
func DefaultAspectTable(minor bool) AspectTable {
	t := make(AspectTable, 0, len(majorAspects)+len(minorAspects))
	t = append(t, majorAspects...)
	if minor {
		t = append(t, minorAspects...)
	}
	return t
}

// KnownAspect reports whether t names a built-in aspect.
func KnownAspect(t domain.AspectType) bool {
	for _, d := range majorAspects {
		if d.Type == t {
			return true
		}
	}
	for _, d := range minorAspects {
		if d.Type == t {
			return true
		}
	}
	return false
}

// WithOrbs returns a copy of t with the given per-type orb overrides.
// Overrides for types not in the table are ignored.
func (t AspectTable) WithOrbs(orbs map[domain.AspectType]float64) (AspectTable, error) {
	out := make(AspectTable, len(t))
	copy(out, t)
	for typ, orb := range orbs {
		if orb < 0 || orb > 180 || math.IsNaN(orb) {
			return nil, fmt.Errorf("chart: orb %v for %s: %w", orb, typ, domain.ErrInvalidOptions)
		}
		for i := range out {
			if out[i].Type == typ {
				out[i].Orb = orb
			}
		}
	}
	return out, nil
}

// Separation is the shortest angular distance between two longitudes, in
// [0,180].
func Separation(a, b float64) float64 {
	d := math.Abs(NormalizeLongitude(a) - NormalizeLongitude(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Classify finds the aspect formed by two longitudes. Of several matching
// definitions it keeps the one closest to exact, then a major over a minor,
// then the earlier table row. The result does not depend on argument order.
func (t AspectTable) Classify(a, b float64) (AspectDefinition, float64, bool) {
	sep := Separation(a, b)
	var (
		best    AspectDefinition
		bestDev float64
		found   bool
	)
	for _, def := range t {
		dev := math.Abs(sep - def.Angle)
		if dev > def.Orb {
			continue
		}
		if !found || dev < bestDev || (dev == bestDev && def.Major && !best.Major) {
			best, bestDev, found = def, dev, true
		}
	}
	return best, bestDev, found
}

// DetectAspects checks every unordered pair of points. Pairs are reported
// in the order the points are given.
func DetectAspects(points []domain.ChartPoint, t AspectTable) []domain.Aspect {
	out := make([]domain.Aspect, 0)
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			a, b := points[i], points[j]
			def, dev, ok := t.Classify(a.Longitude, b.Longitude)
			if !ok {
				continue
			}
			out = append(out, domain.Aspect{
				A:          a.Name,
				B:          b.Name,
				Type:       def.Type,
				ExactAngle: def.Angle,
				Separation: Separation(a.Longitude, b.Longitude),
				Orb:        dev,
				Nature:     def.Nature,
			})
		}
	}
	return out
}
