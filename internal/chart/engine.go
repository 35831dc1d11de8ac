// Package chart computes natal charts. Every function is pure apart from
// calls to the injected ephemeris provider; an Engine is safe for
// concurrent use.
package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// Engine assembles a NatalChart from a birth moment.
type Engine struct {
	provider domain.EphemerisProvider
	houses   *HouseSystemRegistry
	defaults Options
}

// NewEngine returns an engine reading positions from p.
func NewEngine(p domain.EphemerisProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: p,
		houses:   DefaultHouseSystems(),
		defaults: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HouseSystems lists the selectors the engine accepts.
func (e *Engine) HouseSystems() []string {
	return e.houses.List()
}

// Tolerance is the stated accuracy of the underlying ephemeris, degrees.
func (e *Engine) Tolerance() float64 {
	if e.provider == nil {
		return 0
	}
	return e.provider.Tolerance()
}

// Resolve lays request options over the engine defaults and returns the
// options a calculation actually runs with. A nil flag takes the engine
// default; an explicit false switches it off.
func (e *Engine) Resolve(o domain.ChartOptions) (Options, error) {
	r := e.defaults
	if o.HouseSystem != "" {
		r.HouseSystem = o.HouseSystem
	}
	if len(o.Bodies) > 0 {
		r.Bodies = o.Bodies
	}
	if o.Orbs != nil {
		r.Orbs = o.Orbs
	}
	if o.RetrogradeWindowMinutes != 0 {
		r.RetrogradeWindow = time.Duration(o.RetrogradeWindowMinutes) * time.Minute
	}
	overlay(&r.MinorAspects, o.MinorAspects)
	overlay(&r.AspectsIncludeAngles, o.AspectAngles)
	overlay(&r.IncludeAnglesInElements, o.ElementAngles)
	overlay(&r.FixedObliquity, o.FixedObliquity)
	return e.finish(r)
}

func overlay(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// finish validates o, fills the remaining gaps and canonicalises the house
// system name.
func (e *Engine) finish(o Options) (Options, error) {
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	o = o.withDefaults()
	hs, err := e.houses.Get(o.HouseSystem)
	if err != nil {
		return Options{}, err
	}
	o.HouseSystem = hs.Name()
	o.resolved = true
	return o, nil
}

// Calculate computes the chart for birth. Options not produced by Resolve
// are merged over the engine defaults first; their boolean fields can only
// switch a default on. Any failure aborts the whole chart; nothing is
// retried.
func (e *Engine) Calculate(ctx context.Context, birth domain.BirthMoment, opts Options) (domain.NatalChart, error) {
	if !opts.resolved {
		var err error
		if opts, err = e.finish(e.merge(opts)); err != nil {
			return domain.NatalChart{}, err
		}
	}

	if e.provider == nil {
		return domain.NatalChart{}, fmt.Errorf("chart: no ephemeris provider: %w", domain.ErrEphemerisUnavailable)
	}
	if err := ValidateCoordinates(birth.Latitude, birth.Longitude); err != nil {
		return domain.NatalChart{}, err
	}
	hs, err := e.houses.Get(opts.HouseSystem)
	if err != nil {
		return domain.NatalChart{}, err
	}
	table, err := DefaultAspectTable(opts.MinorAspects).WithOrbs(opts.Orbs)
	if err != nil {
		return domain.NatalChart{}, err
	}

	rm, err := ResolveMoment(birth)
	if err != nil {
		return domain.NatalChart{}, err
	}
	eps := MeanObliquity(rm.JulianDay)
	if opts.FixedObliquity {
		eps = FixedObliquity
	}
	lst := LocalSiderealTime(rm.GreenwichSiderealTime, birth.Longitude)
	angles, err := ComputeAngles(lst, birth.Latitude, eps)
	if err != nil {
		return domain.NatalChart{}, err
	}

	bodies := make([]domain.ChartPoint, 0, len(opts.Bodies))
	for _, body := range opts.Bodies {
		pos, err := e.provider.Position(ctx, body, rm.UTC)
		if err != nil {
			return domain.NatalChart{}, fmt.Errorf("chart: position of %s: %w: %w", body, domain.ErrEphemerisUnavailable, err)
		}
		retro, err := retrogradeFrom(ctx, e.provider, body, rm.UTC, pos.Longitude, opts.RetrogradeWindow)
		if err != nil {
			return domain.NatalChart{}, err
		}
		p := newPoint(string(body), domain.PointBody, pos.Longitude, pos.Latitude)
		p.House = hs.House(p.Longitude, angles)
		p.Retrograde = retro
		bodies = append(bodies, p)
	}

	asc := newPoint(domain.Ascendant, domain.PointAngle, angles.Ascendant, 0)
	asc.House = 1
	mc := newPoint(domain.Midheaven, domain.PointAngle, angles.Midheaven, 0)
	mc.House = hs.House(mc.Longitude, angles)

	c := domain.NatalChart{
		Birth:              birth,
		UTC:                rm.UTC,
		JulianDay:          rm.JulianDay,
		LocalSiderealTime:  lst,
		Obliquity:          eps,
		HouseSystem:        hs.Name(),
		ReducedPrecision:   rm.ReducedPrecision,
		Cusps:              hs.Cusps(angles),
		Angles:             []domain.ChartPoint{asc, mc},
		Bodies:             bodies,
		EphemerisTolerance: e.provider.Tolerance(),
	}

	candidates := c.Bodies
	if opts.AspectsIncludeAngles {
		candidates = c.Points()
	}
	c.Aspects = DetectAspects(candidates, table)
	c.Elements = TallyElements(c.Points(), opts.IncludeAnglesInElements)
	return c, nil
}

// merge lays request options over the engine defaults.
func (e *Engine) merge(o Options) Options {
	d := e.defaults
	if o.HouseSystem == "" {
		o.HouseSystem = d.HouseSystem
	}
	if len(o.Bodies) == 0 {
		o.Bodies = d.Bodies
	}
	if o.Orbs == nil {
		o.Orbs = d.Orbs
	}
	if o.RetrogradeWindow == 0 {
		o.RetrogradeWindow = d.RetrogradeWindow
	}
	o.MinorAspects = o.MinorAspects || d.MinorAspects
	o.AspectsIncludeAngles = o.AspectsIncludeAngles || d.AspectsIncludeAngles
	o.IncludeAnglesInElements = o.IncludeAnglesInElements || d.IncludeAnglesInElements
	o.FixedObliquity = o.FixedObliquity || d.FixedObliquity
	return o
}

func newPoint(name string, kind domain.PointKind, lon, lat float64) domain.ChartPoint {
	z := Normalize(lon)
	return domain.ChartPoint{
		Name:       name,
		Kind:       kind,
		Sign:       z.Sign,
		Degree:     z.Degree,
		Arcminute:  z.Arcminute,
		DegreeText: z.Text(),
		Longitude:  z.Longitude,
		Latitude:   lat,
		Element:    z.Element,
	}
}
