package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/natalchart/internal/chart"
	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ChartService computes charts through the engine and fronts them with the
// chart cache and store. Store, cache and audit are optional; a nil value
// disables that layer.
type ChartService struct {
	engine *chart.Engine
	store  domain.ChartStore
	cache  domain.ChartCache
	audit  domain.AuditStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewChartService creates a ChartService.
func NewChartService(
	engine *chart.Engine,
	store domain.ChartStore,
	cache domain.ChartCache,
	audit domain.AuditStore,
	logger *slog.Logger,
) *ChartService {
	return &ChartService{
		engine: engine,
		store:  store,
		cache:  cache,
		audit:  audit,
		logger: logger.With(slog.String("component", "chart_service")),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// HouseSystems lists the selectors accepted in ChartOptions.HouseSystem.
func (s *ChartService) HouseSystems() []string {
	return s.engine.HouseSystems()
}

// Tolerance is the ephemeris accuracy bound in degrees.
func (s *ChartService) Tolerance() float64 {
	return s.engine.Tolerance()
}

// CacheKey fingerprints the birth data and the effective options of a
// calculation. opts should come from Engine.Resolve so the engine defaults
// the request was merged with are part of the key. The label is not.
func CacheKey(birth domain.BirthMoment, opts chart.Options) (string, error) {
	bodies := slices.Clone(opts.Bodies)
	slices.Sort(bodies)

	canonical, err := json.Marshal(struct {
		Birth                   domain.BirthMoment            `json:"birth"`
		HouseSystem             string                        `json:"house_system"`
		Bodies                  []domain.Body                 `json:"bodies"`
		Orbs                    map[domain.AspectType]float64 `json:"orbs,omitempty"`
		MinorAspects            bool                          `json:"minor_aspects"`
		AspectsIncludeAngles    bool                          `json:"aspect_angles"`
		IncludeAnglesInElements bool                          `json:"element_angles"`
		RetrogradeWindow        time.Duration                 `json:"retrograde_window"`
		FixedObliquity          bool                          `json:"fixed_obliquity"`
	}{
		Birth:                   birth,
		HouseSystem:             strings.ToLower(strings.TrimSpace(opts.HouseSystem)),
		Bodies:                  bodies,
		Orbs:                    opts.Orbs,
		MinorAspects:            opts.MinorAspects,
		AspectsIncludeAngles:    opts.AspectsIncludeAngles,
		IncludeAnglesInElements: opts.IncludeAnglesInElements,
		RetrogradeWindow:        opts.RetrogradeWindow,
		FixedObliquity:          opts.FixedObliquity,
	})
	if err != nil {
		return "", fmt.Errorf("chart_service: cache key: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Calculate returns the chart for req, computing it only when neither the
// cache nor the store already holds one for the same fingerprint.
func (s *ChartService) Calculate(ctx context.Context, req domain.ChartRequest) (domain.ChartRecord, error) {
	opts, err := s.engine.Resolve(req.Options)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("chart_service: options: %w", err)
	}
	key, err := CacheKey(req.Birth, opts)
	if err != nil {
		return domain.ChartRecord{}, err
	}

	if rec, ok := s.lookup(ctx, key); ok {
		return rec, nil
	}

	start := time.Now()
	natal, err := s.engine.Calculate(ctx, req.Birth, opts)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("chart_service: calculate: %w", err)
	}

	rec := domain.ChartRecord{
		ID:        s.newID(),
		CacheKey:  key,
		Label:     req.Label,
		Birth:     req.Birth,
		Options:   req.Options,
		Chart:     natal,
		CreatedAt: s.now(),
	}

	if s.store != nil {
		stored, err := s.store.Create(ctx, rec)
		if err != nil {
			return domain.ChartRecord{}, fmt.Errorf("chart_service: persist %s: %w", rec.ID, err)
		}
		if stored.ID != rec.ID {
			// A concurrent writer stored this fingerprint first. Its record
			// is authoritative; the next lookup back-fills it.
			s.logger.DebugContext(ctx, "chart already stored",
				slog.String("chart_id", stored.ID),
				slog.String("discarded_id", rec.ID),
			)
			s.invalidate(ctx, key)
			return stored, nil
		}
	}
	s.backfill(ctx, rec)
	s.auditLog(ctx, "chart.created", map[string]any{
		"chart_id":          rec.ID,
		"house_system":      natal.HouseSystem,
		"reduced_precision": natal.ReducedPrecision,
	})

	s.logger.InfoContext(ctx, "chart computed",
		slog.String("chart_id", rec.ID),
		slog.String("house_system", natal.HouseSystem),
		slog.Int("bodies", len(natal.Bodies)),
		slog.Int("aspects", len(natal.Aspects)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

// lookup tries the cache, then the store, back-filling the cache on a store
// hit. Cache errors are logged and treated as misses.
func (s *ChartService) lookup(ctx context.Context, key string) (domain.ChartRecord, bool) {
	if s.cache != nil {
		rec, err := s.cache.Get(ctx, key)
		if err == nil {
			s.logger.DebugContext(ctx, "chart cache hit", slog.String("chart_id", rec.ID))
			return rec, true
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "chart cache get failed",
				slog.String("cache_key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.store != nil {
		rec, err := s.store.GetByCacheKey(ctx, key)
		if err == nil {
			s.backfill(ctx, rec)
			return rec, true
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "chart store lookup failed",
				slog.String("cache_key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return domain.ChartRecord{}, false
}

func (s *ChartService) backfill(ctx context.Context, rec domain.ChartRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "chart cache set failed",
			slog.String("chart_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ChartService) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "chart cache invalidate failed",
			slog.String("cache_key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ChartService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Get returns a stored chart by ID. Without a store only cached charts are
// reachable.
func (s *ChartService) Get(ctx context.Context, id string) (domain.ChartRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.GetByID(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "chart cache get by id failed",
				slog.String("chart_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.store == nil {
		return domain.ChartRecord{}, fmt.Errorf("chart_service: get %s: %w", id, domain.ErrNotFound)
	}

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("chart_service: get %s: %w", id, err)
	}
	s.backfill(ctx, rec)
	return rec, nil
}

// List returns stored charts newest first with the total count. Without a
// store the list is empty.
func (s *ChartService) List(ctx context.Context, opts domain.ListOpts) ([]domain.ChartRecord, int64, error) {
	if s.store == nil {
		return []domain.ChartRecord{}, 0, nil
	}
	recs, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("chart_service: list: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("chart_service: count: %w", err)
	}
	if recs == nil {
		recs = []domain.ChartRecord{}
	}
	return recs, total, nil
}
