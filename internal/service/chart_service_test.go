package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/natalchart/internal/chart"
	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/ephemeris"
)

func cacheKey(t *testing.T, e *chart.Engine, req domain.ChartRequest) string {
	t.Helper()
	opts, err := e.Resolve(req.Options)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	key, err := CacheKey(req.Birth, opts)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	return key
}

func TestCacheKey(t *testing.T) {
	e := newEngine()
	a := londonRequest("first")
	a.Options.Bodies = []domain.Body{domain.Moon, domain.Sun}
	b := londonRequest("second")
	b.Options.Bodies = []domain.Body{domain.Sun, domain.Moon}

	ka := cacheKey(t, e, a)
	if kb := cacheKey(t, e, b); ka != kb {
		t.Error("label and body order should not change the key")
	}

	c := londonRequest("first")
	c.Options.Bodies = a.Options.Bodies
	c.Options.HouseSystem = "whole-sign"
	if kc := cacheKey(t, e, c); kc == ka {
		t.Error("house system should change the key")
	}

	// Spelling out a default is the same calculation as leaving it unset.
	d := londonRequest("")
	d.Options.HouseSystem = "Equal"
	d.Options.RetrogradeWindowMinutes = 60
	if cacheKey(t, e, d) != cacheKey(t, e, londonRequest("")) {
		t.Error("explicit defaults should share the key of an empty request")
	}
}

func TestCacheKeyIncludesEngineDefaults(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	equal, err := NewChartService(newEngine(), store, nil, nil, quietLogger()).Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	wholeSign := chart.NewEngine(ephemeris.NewAnalytic(), chart.WithDefaults(chart.Options{HouseSystem: "whole-sign"}))
	got, err := NewChartService(wholeSign, store, nil, nil, quietLogger()).Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Chart.HouseSystem != "whole-sign" {
		t.Fatalf("house system: want=whole-sign got=%s", got.Chart.HouseSystem)
	}
	if got.ID == equal.ID || got.CacheKey == equal.CacheKey {
		t.Errorf("engines with different defaults must not share a record")
	}
	if store.creates != 2 {
		t.Errorf("creates: want=2 got=%d", store.creates)
	}
}

func TestCalculateOptionOverridesDefault(t *testing.T) {
	minor := chart.NewEngine(ephemeris.NewAnalytic(), chart.WithDefaults(chart.Options{MinorAspects: true}))
	svc := NewChartService(minor, nil, nil, nil, quietLogger())
	ctx := context.Background()

	withMinor, err := svc.Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	off := false
	req := londonRequest("")
	req.Options.MinorAspects = &off
	majorOnly, err := svc.Calculate(ctx, req)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if majorOnly.CacheKey == withMinor.CacheKey {
		t.Fatal("switching a default off should change the key")
	}
	for _, a := range majorOnly.Chart.Aspects {
		if a.Type == domain.Quincunx || a.Type == domain.SemiSextile {
			t.Fatalf("minor aspect %s survived minor_aspects=false", a.Type)
		}
	}
}

func TestCalculateConcurrentWriterWins(t *testing.T) {
	store, cache, audit := newMemStore(), newMemCache(), &memAudit{}
	svc := NewChartService(newEngine(), store, cache, audit, quietLogger())
	ctx := context.Background()

	winner := domain.ChartRecord{ID: "winner", Label: "first writer"}
	store.beforeCreate = func(rec domain.ChartRecord) {
		winner.CacheKey = rec.CacheKey
		winner.Chart = rec.Chart
		store.put(winner)
	}

	got, err := svc.Calculate(ctx, londonRequest("late"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.ID != "winner" || got.Label != "first writer" {
		t.Fatalf("want the stored record, got id=%s label=%s", got.ID, got.Label)
	}
	if store.creates != 0 {
		t.Errorf("creates: want=0 got=%d", store.creates)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != winner.CacheKey {
		t.Errorf("invalidated: want=[%s] got=%v", winner.CacheKey, cache.invalidated)
	}
	if len(audit.events) != 0 {
		t.Errorf("no chart was created, audit got=%v", audit.events)
	}

	store.beforeCreate = nil
	again, err := svc.Calculate(ctx, londonRequest("again"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if again.ID != "winner" {
		t.Errorf("follow-up lookup: want=winner got=%s", again.ID)
	}
	if _, err := svc.Get(ctx, "winner"); err != nil {
		t.Errorf("Get winner: %v", err)
	}
}

func TestCalculatePersistsAndCaches(t *testing.T) {
	store, cache, audit := newMemStore(), newMemCache(), &memAudit{}
	svc := NewChartService(newEngine(), store, cache, audit, quietLogger())
	ctx := context.Background()

	first, err := svc.Calculate(ctx, londonRequest("ada"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if first.ID == "" || first.CacheKey == "" {
		t.Fatalf("record missing id or key: %+v", first)
	}
	if len(first.Chart.Bodies) != 10 {
		t.Errorf("bodies: want=10 got=%d", len(first.Chart.Bodies))
	}
	if first.Chart.HouseSystem != "equal" {
		t.Errorf("house system: want=equal got=%s", first.Chart.HouseSystem)
	}

	second, err := svc.Calculate(ctx, londonRequest("ada again"))
	if err != nil {
		t.Fatalf("Calculate (cached): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call should hit the cache: want=%s got=%s", first.ID, second.ID)
	}
	if store.creates != 1 {
		t.Errorf("creates: want=1 got=%d", store.creates)
	}
	if len(audit.events) != 1 || audit.events[0] != "chart.created" {
		t.Errorf("audit: got=%v", audit.events)
	}
}

func TestCalculateStoreHitBackfillsCache(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	ctx := context.Background()

	seed, err := NewChartService(newEngine(), store, nil, nil, quietLogger()).Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewChartService(newEngine(), store, cache, nil, quietLogger())
	got, err := svc.Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.ID != seed.ID {
		t.Errorf("want stored record %s, got=%s", seed.ID, got.ID)
	}
	if _, err := cache.Get(ctx, seed.CacheKey); err != nil {
		t.Errorf("cache not back-filled: %v", err)
	}
}

func TestCalculateCacheFailureIsNotFatal(t *testing.T) {
	cache := newMemCache()
	cache.fail = errors.New("redis down")
	svc := NewChartService(newEngine(), nil, cache, nil, quietLogger())

	if _, err := svc.Calculate(context.Background(), londonRequest("")); err != nil {
		t.Fatalf("cache errors should be ignored, got=%v", err)
	}
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*domain.ChartRequest)
		want error
	}{
		{"latitude", func(r *domain.ChartRequest) { r.Birth.Latitude = 95 }, domain.ErrInvalidCoordinates},
		{"month", func(r *domain.ChartRequest) { r.Birth.Date.Month = 13 }, domain.ErrInvalidBirthMoment},
		{"house system", func(r *domain.ChartRequest) { r.Options.HouseSystem = "koch" }, domain.ErrUnsupportedHouseSystem},
		{"body", func(r *domain.ChartRequest) { r.Options.Bodies = []domain.Body{"Vulcan"} }, domain.ErrInvalidOptions},
		{"polar", func(r *domain.ChartRequest) { r.Birth.Latitude = 90 }, domain.ErrDegenerateAscendant},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewChartService(newEngine(), store, nil, nil, quietLogger())
			req := londonRequest("")
			tc.edit(&req)

			_, err := svc.Calculate(context.Background(), req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
			if store.creates != 0 {
				t.Errorf("failed calculation must not be stored")
			}
		})
	}
}

func TestGetAndList(t *testing.T) {
	store := newMemStore()
	svc := NewChartService(newEngine(), store, nil, nil, quietLogger())
	ctx := context.Background()

	rec, err := svc.Calculate(ctx, londonRequest("x"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	got, err := svc.Get(ctx, rec.ID)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("Get: want=%s got=%s err=%v", rec.ID, got.ID, err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: want ErrNotFound, got=%v", err)
	}

	list, total, err := svc.List(ctx, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || total != 1 {
		t.Errorf("list: want 1/1 got %d/%d", len(list), total)
	}
}

func TestGetWithoutStoreUsesCache(t *testing.T) {
	cache := newMemCache()
	svc := NewChartService(newEngine(), nil, cache, nil, quietLogger())
	ctx := context.Background()

	rec, err := svc.Calculate(ctx, londonRequest(""))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); err != nil {
		t.Errorf("Get via cache: %v", err)
	}
	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound, got=%v", err)
	}
	list, total, err := svc.List(ctx, domain.ListOpts{})
	if err != nil || len(list) != 0 || total != 0 {
		t.Errorf("List without store: got %d/%d err=%v", len(list), total, err)
	}
}
