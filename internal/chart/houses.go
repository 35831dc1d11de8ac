package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// HouseSystem maps longitudes to houses 1..12. Implementations must place
// the Ascendant itself in house 1.
type HouseSystem interface {
	Name() string
	Cusps(a Angles) [12]float64
	House(longitude float64, a Angles) int
}

// EqualHouse divides the ecliptic into twelve 30° houses from the
// Ascendant.
type EqualHouse struct{}

func (EqualHouse) Name() string { return "equal" }

func (EqualHouse) Cusps(a Angles) [12]float64 {
	var c [12]float64
	for i := range c {
		c[i] = NormalizeLongitude(a.Ascendant + float64(i)*30)
	}
	return c
}

func (EqualHouse) House(longitude float64, a Angles) int {
	return clampHouse(int(math.Floor(NormalizeLongitude(longitude-a.Ascendant)/30)) + 1)
}

// WholeSign makes the rising sign the first house.
type WholeSign struct{}

func (WholeSign) Name() string { return "whole-sign" }

// Cusps are the starts of the twelve signs from the rising sign on. The
// rising sign is the one the Ascendant is in, not its rounded display sign.
func (WholeSign) Cusps(a Angles) [12]float64 {
	rising := signOf(a.Ascendant)
	var c [12]float64
	for i := range c {
		c[i] = domain.SignFromIndex(int(rising) + i).StartLongitude()
	}
	return c
}

func (WholeSign) House(longitude float64, a Angles) int {
	return clampHouse((int(signOf(longitude))-int(signOf(a.Ascendant))+12)%12 + 1)
}

func signOf(lon float64) domain.Sign {
	return domain.SignFromIndex(int(NormalizeLongitude(lon) / 30))
}

// Porphyry trisects each quadrant between the angles.
type Porphyry struct{}

func (Porphyry) Name() string { return "porphyry" }

func (Porphyry) Cusps(a Angles) [12]float64 {
	var c [12]float64
	quarters := [4]float64{a.Ascendant, a.ImumCoeli(), a.Descendant(), a.Midheaven}
	for q := 0; q < 4; q++ {
		from := quarters[q]
		arc := NormalizeLongitude(quarters[(q+1)%4] - from)
		for k := 0; k < 3; k++ {
			c[q*3+k] = NormalizeLongitude(from + arc*float64(k)/3)
		}
	}
	return c
}

func (p Porphyry) House(longitude float64, a Angles) int {
	return houseFromCusps(longitude, p.Cusps(a))
}

// houseFromCusps finds the house whose forward arc from its cusp to the
// next contains longitude.
func houseFromCusps(longitude float64, cusps [12]float64) int {
	for i := 0; i < 12; i++ {
		span := NormalizeLongitude(cusps[(i+1)%12] - cusps[i])
		if NormalizeLongitude(longitude-cusps[i]) < span {
			return i + 1
		}
	}
	return 1
}

func clampHouse(h int) int {
	if h < 1 {
		return 1
	}
	if h > 12 {
		return 12
	}
	return h
}

// DefaultHouseSystem is the selector used when none is given.
const DefaultHouseSystem = "equal"

// HouseSystemRegistry holds house systems by selector.
type HouseSystemRegistry struct {
	systems map[string]HouseSystem
	mu      sync.RWMutex
}

// NewHouseSystemRegistry returns an empty registry.
func NewHouseSystemRegistry() *HouseSystemRegistry {
	return &HouseSystemRegistry{systems: make(map[string]HouseSystem)}
}

// DefaultHouseSystems returns a registry with every built-in system.
func DefaultHouseSystems() *HouseSystemRegistry {
	r := NewHouseSystemRegistry()
	r.Register(EqualHouse{})
	r.Register(WholeSign{})
	r.Register(Porphyry{})
	return r
}

// Register adds s under its own name, replacing any previous entry.
func (r *HouseSystemRegistry) Register(s HouseSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems[selectorKey(s.Name())] = s
}

// Get resolves a selector. The empty selector means DefaultHouseSystem.
func (r *HouseSystemRegistry) Get(name string) (HouseSystem, error) {
	key := selectorKey(name)
	if key == "" {
		key = DefaultHouseSystem
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.systems[key]
	if !ok {
		return nil, fmt.Errorf("chart: house system %q: %w", name, domain.ErrUnsupportedHouseSystem)
	}
	return s, nil
}

// List returns all registered selectors, sorted.
func (r *HouseSystemRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.systems))
	for n := range r.systems {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func selectorKey(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", " ", "-").Replace(k)
}
