package domain

import "time"

// PointKind separates planetary bodies from chart angles.
type PointKind string

const (
	PointBody  PointKind = "body"
	PointAngle PointKind = "angle"
)

// Angle point names.
const (
	Ascendant = "Ascendant"
	Midheaven = "Midheaven"
)

// ChartPoint is a body or angle placed in the zodiac and in a house.
type ChartPoint struct {
	Name       string    `json:"name"`
	Kind       PointKind `json:"kind"`
	Sign       Sign      `json:"sign"`
	Degree     int       `json:"degree"`
	Arcminute  int       `json:"arcminute"`
	DegreeText string    `json:"degree_text"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	House      int       `json:"house"`
	Retrograde bool      `json:"retrograde"`
	Element    Element   `json:"element"`
}

// IsAngle reports whether the point is the Ascendant or Midheaven.
func (p ChartPoint) IsAngle() bool { return p.Kind == PointAngle }

// ElementalBalance counts chart points per element.
type ElementalBalance struct {
	Fire  int `json:"Fire"`
	Earth int `json:"Earth"`
	Air   int `json:"Air"`
	Water int `json:"Water"`
}

// Count returns the tally for a single element.
func (b ElementalBalance) Count(e Element) int {
	switch e {
	case Fire:
		return b.Fire
	case Earth:
		return b.Earth
	case Air:
		return b.Air
	case Water:
		return b.Water
	}
	return 0
}

// Total is the sum over all four buckets.
func (b ElementalBalance) Total() int {
	return b.Fire + b.Earth + b.Air + b.Water
}

// Add returns a copy of b with one more count in e.
func (b ElementalBalance) Add(e Element) ElementalBalance {
	switch e {
	case Fire:
		b.Fire++
	case Earth:
		b.Earth++
	case Air:
		b.Air++
	case Water:
		b.Water++
	}
	return b
}

// Dominant returns the element with the highest count. Ties resolve in
// Fire, Earth, Air, Water order; an empty balance reports "".
func (b ElementalBalance) Dominant() Element {
	var best Element
	max := 0
	for _, e := range Elements {
		if n := b.Count(e); n > max {
			best, max = e, n
		}
	}
	return best
}

// ChartOptions selects what a calculation includes. The zero value asks for
// the engine defaults, which out of the box are Equal House, the ten
// planets, major aspects with standard orbs, bodies only in aspects and
// element tallies, a one hour retrograde sampling window and an
// epoch-corrected obliquity. The flags are pointers so a request can switch
// an engine default off.
type ChartOptions struct {
	HouseSystem             string                 `json:"house_system,omitempty"`
	Bodies                  []Body                 `json:"bodies,omitempty"`
	Orbs                    map[AspectType]float64 `json:"orbs,omitempty"`
	MinorAspects            *bool                  `json:"minor_aspects,omitempty"`
	AspectAngles            *bool                  `json:"aspect_angles,omitempty"`
	ElementAngles           *bool                  `json:"element_angles,omitempty"`
	RetrogradeWindowMinutes int                    `json:"retrograde_window_minutes,omitempty"`
	FixedObliquity          *bool                  `json:"fixed_obliquity,omitempty"`
}

// NatalChart is the immutable result of one chart calculation. Angles and
// bodies are kept in separate collections; Points merges them.
type NatalChart struct {
	Birth              BirthMoment      `json:"birth"`
	UTC                time.Time        `json:"utc"`
	JulianDay          float64          `json:"julian_day"`
	LocalSiderealTime  float64          `json:"local_sidereal_time"`
	Obliquity          float64          `json:"obliquity"`
	HouseSystem        string           `json:"house_system"`
	ReducedPrecision   bool             `json:"reduced_precision"`
	Cusps              [12]float64      `json:"cusps"`
	Angles             []ChartPoint     `json:"angles"`
	Bodies             []ChartPoint     `json:"bodies"`
	Elements           ElementalBalance `json:"elements"`
	Aspects            []Aspect         `json:"aspects"`
	EphemerisTolerance float64          `json:"ephemeris_tolerance"`
}

// Points returns angles followed by bodies.
func (c NatalChart) Points() []ChartPoint {
	out := make([]ChartPoint, 0, len(c.Angles)+len(c.Bodies))
	out = append(out, c.Angles...)
	return append(out, c.Bodies...)
}

// Point looks up a point by name.
func (c NatalChart) Point(name string) (ChartPoint, bool) {
	for _, p := range c.Angles {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range c.Bodies {
		if p.Name == name {
			return p, true
		}
	}
	return ChartPoint{}, false
}
