package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// DefaultRetrogradeWindow is the sampling interval between the two
// longitude readings used to infer direction of motion. It is a coarse
// velocity proxy, not an instantaneous speed.
const DefaultRetrogradeWindow = time.Hour

// AngularDelta is the signed shortest arc from `from` to `to`, in (-180,180].
// It stays correct when the motion crosses 0° Aries.
func AngularDelta(from, to float64) float64 {
	d := wrap(to-from+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}

// IsRetrograde reports apparent backward motion between two samples.
func IsRetrograde(from, to float64) bool {
	return AngularDelta(from, to) < 0
}

// DetectRetrograde samples body at `at` and `at+window` and reports whether
// its longitude decreased. A non-positive window uses the default.
func DetectRetrograde(ctx context.Context, p domain.EphemerisProvider, body domain.Body, at time.Time, window time.Duration) (bool, error) {
	first, err := p.Position(ctx, body, at)
	if err != nil {
		return false, fmt.Errorf("chart: position of %s: %w: %w", body, domain.ErrEphemerisUnavailable, err)
	}
	return retrogradeFrom(ctx, p, body, at, first.Longitude, window)
}

func retrogradeFrom(ctx context.Context, p domain.EphemerisProvider, body domain.Body, at time.Time, lon float64, window time.Duration) (bool, error) {
	if window <= 0 {
		window = DefaultRetrogradeWindow
	}
	next, err := p.Position(ctx, body, at.Add(window))
	if err != nil {
		return false, fmt.Errorf("chart: position of %s at +%s: %w: %w", body, window, domain.ErrEphemerisUnavailable, err)
	}
	return IsRetrograde(lon, next.Longitude), nil
}
