package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ChartStore implements domain.ChartStore on the charts table. Birth data,
// options and the computed chart are stored as JSONB documents.
type ChartStore struct {
	pool *pgxpool.Pool
}

// NewChartStore creates a ChartStore backed by pool.
func NewChartStore(pool *pgxpool.Pool) *ChartStore {
	return &ChartStore{pool: pool}
}

const chartColumns = `id::text, cache_key, label, birth, options, chart, created_at`

// Create inserts rec and returns the stored record. When another writer
// already stored the same cache key, that record is returned instead and
// rec is discarded.
func (s *ChartStore) Create(ctx context.Context, rec domain.ChartRecord) (domain.ChartRecord, error) {
	birth, err := json.Marshal(rec.Birth)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("postgres: marshal birth %s: %w", rec.ID, err)
	}
	opts, err := json.Marshal(rec.Options)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("postgres: marshal options %s: %w", rec.ID, err)
	}
	chart, err := json.Marshal(rec.Chart)
	if err != nil {
		return domain.ChartRecord{}, fmt.Errorf("postgres: marshal chart %s: %w", rec.ID, err)
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	const query = `
		INSERT INTO charts (id, cache_key, label, house_system, reduced_precision,
		                    birth, options, chart, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (cache_key) DO UPDATE SET cache_key = EXCLUDED.cache_key
		RETURNING id::text`
	var storedID string
	if err := s.pool.QueryRow(ctx, query,
		rec.ID, rec.CacheKey, rec.Label, rec.Chart.HouseSystem, rec.Chart.ReducedPrecision,
		birth, opts, chart, rec.CreatedAt,
	).Scan(&storedID); err != nil {
		return domain.ChartRecord{}, fmt.Errorf("postgres: create chart %s: %w", rec.ID, err)
	}
	if storedID == rec.ID {
		return rec, nil
	}
	return s.GetByID(ctx, storedID)
}

// GetByID returns the chart with the given ID, or domain.ErrNotFound.
func (s *ChartStore) GetByID(ctx context.Context, id string) (domain.ChartRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ChartRecord{}, domain.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+chartColumns+` FROM charts WHERE id = $1`, id)
	rec, err := scanChart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChartRecord{}, domain.ErrNotFound
		}
		return domain.ChartRecord{}, fmt.Errorf("postgres: get chart %s: %w", id, err)
	}
	return rec, nil
}

// GetByCacheKey returns the chart computed for a request fingerprint.
func (s *ChartStore) GetByCacheKey(ctx context.Context, key string) (domain.ChartRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+chartColumns+` FROM charts WHERE cache_key = $1`, key)
	rec, err := scanChart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChartRecord{}, domain.ErrNotFound
		}
		return domain.ChartRecord{}, fmt.Errorf("postgres: get chart by key %s: %w", key, err)
	}
	return rec, nil
}

// List returns charts newest first.
func (s *ChartStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ChartRecord, error) {
	query, args := listQuery(`SELECT `+chartColumns+` FROM charts`, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list charts: %w", err)
	}
	defer rows.Close()

	var out []domain.ChartRecord
	for rows.Next() {
		rec, err := scanChart(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan chart: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate charts: %w", err)
	}
	return out, nil
}

// Count returns the number of stored charts.
func (s *ChartStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM charts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count charts: %w", err)
	}
	return n, nil
}

func scanChart(row pgx.Row) (domain.ChartRecord, error) {
	var (
		rec                 domain.ChartRecord
		birth, opts, result []byte
	)
	if err := row.Scan(&rec.ID, &rec.CacheKey, &rec.Label, &birth, &opts, &result, &rec.CreatedAt); err != nil {
		return domain.ChartRecord{}, err
	}
	if err := json.Unmarshal(birth, &rec.Birth); err != nil {
		return domain.ChartRecord{}, fmt.Errorf("unmarshal birth: %w", err)
	}
	if err := json.Unmarshal(opts, &rec.Options); err != nil {
		return domain.ChartRecord{}, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(result, &rec.Chart); err != nil {
		return domain.ChartRecord{}, fmt.Errorf("unmarshal chart: %w", err)
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.ChartStore = (*ChartStore)(nil)
