package ephemeris

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// Cached is a read-through decorator over another provider. Cache failures
// are logged and never fail a lookup.
type Cached struct {
	next   domain.EphemerisProvider
	cache  domain.EphemerisCache
	logger *slog.Logger
}

var _ domain.EphemerisProvider = (*Cached)(nil)

// NewCached wraps next with cache.
func NewCached(next domain.EphemerisProvider, cache domain.EphemerisCache, logger *slog.Logger) *Cached {
	return &Cached{
		next:   next,
		cache:  cache,
		logger: logger.With(slog.String("component", "ephemeris_cache")),
	}
}

// Tolerance implements domain.EphemerisProvider.
func (c *Cached) Tolerance() float64 { return c.next.Tolerance() }

// Position implements domain.EphemerisProvider.
func (c *Cached) Position(ctx context.Context, body domain.Body, at time.Time) (domain.EclipticPosition, error) {
	pos, err := c.cache.GetPosition(ctx, body, at)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		c.logger.WarnContext(ctx, "ephemeris cache read failed",
			slog.String("body", string(body)),
			slog.String("error", err.Error()),
		)
	}

	pos, err = c.next.Position(ctx, body, at)
	if err != nil {
		return domain.EclipticPosition{}, err
	}
	if err := c.cache.SetPosition(ctx, pos); err != nil {
		c.logger.WarnContext(ctx, "ephemeris cache write failed",
			slog.String("body", string(body)),
			slog.String("error", err.Error()),
		)
	}
	return pos, nil
}
