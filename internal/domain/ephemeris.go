package domain

import (
	"context"
	"time"
)

// EclipticPosition is a geocentric ecliptic position of date. Longitude is
// continuous and not yet reduced to a sign.
type EclipticPosition struct {
	Body      Body      `json:"body"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	At        time.Time `json:"at"`
}

// EphemerisProvider returns the position of a body at an instant.
//
// Implementations must be deterministic: the same body and instant always
// produce the same position. Tolerance reports the provider's stated
// accuracy bound in degrees. Providers that do I/O must honour ctx; the
// chart engine never retries a failed lookup.
type EphemerisProvider interface {
	Position(ctx context.Context, body Body, at time.Time) (EclipticPosition, error)
	Tolerance() float64
}

// EphemerisCache memoises provider lookups.
type EphemerisCache interface {
	GetPosition(ctx context.Context, body Body, at time.Time) (EclipticPosition, error)
	SetPosition(ctx context.Context, pos EclipticPosition) error
}
