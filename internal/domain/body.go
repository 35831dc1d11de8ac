package domain

import (
	"fmt"
	"strings"
)

// Body identifies a celestial body the engine can place in a chart.
type Body string

const (
	Sun       Body = "Sun"
	Moon      Body = "Moon"
	Mercury   Body = "Mercury"
	Venus     Body = "Venus"
	Mars      Body = "Mars"
	Jupiter   Body = "Jupiter"
	Saturn    Body = "Saturn"
	Uranus    Body = "Uranus"
	Neptune   Body = "Neptune"
	Pluto     Body = "Pluto"
	NorthNode Body = "NorthNode"
	Chiron    Body = "Chiron"
	Lilith    Body = "Lilith"
)

// allBodies is the canonical chart order. Charts list bodies in this order
// regardless of the order a caller asked for them.
var allBodies = [...]Body{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto,
	NorthNode, Chiron, Lilith,
}

// AllBodies returns every supported body in canonical order.
func AllBodies() []Body {
	out := make([]Body, len(allBodies))
	copy(out, allBodies[:])
	return out
}

// DefaultBodies returns the full planetary set (Sun through Pluto).
func DefaultBodies() []Body {
	out := make([]Body, 10)
	copy(out, allBodies[:10])
	return out
}

// Order returns the canonical position of b, or -1 for an unknown body.
func (b Body) Order() int {
	for i, known := range allBodies {
		if known == b {
			return i
		}
	}
	return -1
}

// Valid reports whether b is one of the supported bodies.
func (b Body) Valid() bool { return b.Order() >= 0 }

// ParseBody resolves a body name case-insensitively ("north_node" and
// "northnode" both map to NorthNode).
func ParseBody(s string) (Body, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for _, b := range allBodies {
		if strings.ToLower(string(b)) == key {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown body %q", s)
}

// SortBodies returns a de-duplicated copy of bodies in canonical order.
// Unknown bodies are dropped.
func SortBodies(bodies []Body) []Body {
	seen := make(map[Body]bool, len(bodies))
	for _, b := range bodies {
		seen[b] = true
	}
	out := make([]Body, 0, len(seen))
	for _, b := range allBodies {
		if seen[b] {
			out = append(out, b)
		}
	}
	return out
}
