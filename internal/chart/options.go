package chart

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// Options controls a single calculation. The zero value is usable and
// resolves to the defaults.
type Options struct {
	// HouseSystem is a registry selector; "" means equal house.
	HouseSystem string
	// Bodies to place. Empty means the ten planets.
	Bodies []domain.Body
	// Orbs overrides the default orb per aspect type.
	Orbs map[domain.AspectType]float64
	// MinorAspects adds semi-sextile, semi-square, quintile,
	// sesquiquadrate, biquintile and quincunx to the aspect table.
	MinorAspects bool
	// AspectsIncludeAngles lets the Ascendant and Midheaven form aspects.
	AspectsIncludeAngles bool
	// IncludeAnglesInElements counts the angles in the elemental balance.
	IncludeAnglesInElements bool
	// RetrogradeWindow is the sampling interval for retrograde detection.
	RetrogradeWindow time.Duration
	// FixedObliquity pins ε to 23.439° instead of the epoch value.
	FixedObliquity bool

	resolved bool
}

// DefaultOptions returns the options a zero value resolves to.
func DefaultOptions() Options {
	return Options{
		HouseSystem:      DefaultHouseSystem,
		Bodies:           domain.DefaultBodies(),
		RetrogradeWindow: DefaultRetrogradeWindow,
	}
}

// withDefaults fills unset fields and puts bodies in canonical order.
func (o Options) withDefaults() Options {
	if o.HouseSystem == "" {
		o.HouseSystem = DefaultHouseSystem
	}
	if len(o.Bodies) == 0 {
		o.Bodies = domain.DefaultBodies()
	} else {
		o.Bodies = domain.SortBodies(o.Bodies)
	}
	if o.RetrogradeWindow <= 0 {
		o.RetrogradeWindow = DefaultRetrogradeWindow
	}
	return o
}

// Validate rejects unknown bodies, unknown aspect types and bad orbs.
func (o Options) Validate() error {
	for _, b := range o.Bodies {
		if !b.Valid() {
			return fmt.Errorf("chart: unknown body %q: %w", b, domain.ErrInvalidOptions)
		}
	}
	for t, orb := range o.Orbs {
		if !KnownAspect(t) {
			return fmt.Errorf("chart: unknown aspect %q: %w", t, domain.ErrInvalidOptions)
		}
		if orb < 0 || orb > 180 {
			return fmt.Errorf("chart: orb %v for %s: %w", orb, t, domain.ErrInvalidOptions)
		}
	}
	if o.RetrogradeWindow < 0 {
		return fmt.Errorf("chart: negative retrograde window: %w", domain.ErrInvalidOptions)
	}
	return nil
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHouseSystems replaces the built-in house system registry.
func WithHouseSystems(r *HouseSystemRegistry) EngineOption {
	return func(e *Engine) {
		e.houses = r
	}
}

// WithDefaults sets options merged under every request: fields the
// request leaves unset take the engine default.
func WithDefaults(o Options) EngineOption {
	return func(e *Engine) {
		e.defaults = o
	}
}
