package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/natalchart/internal/chart"
	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/ephemeris"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine() *chart.Engine {
	return chart.NewEngine(ephemeris.NewAnalytic())
}

func londonRequest(label string) domain.ChartRequest {
	offset := 60
	return domain.ChartRequest{
		Label: label,
		Birth: domain.BirthMoment{
			Date:             domain.CivilDate{Year: 1990, Month: 4, Day: 19},
			Time:             &domain.TimeOfDay{Hour: 14, Minute: 30},
			UTCOffsetMinutes: &offset,
			Latitude:         51.5074,
			Longitude:        -0.1278,
		},
	}
}

type memStore struct {
	mu      sync.Mutex
	byID    map[string]domain.ChartRecord
	creates int
	// beforeCreate runs ahead of each insert, outside the lock, so a test
	// can slip in a competing writer.
	beforeCreate func(rec domain.ChartRecord)
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]domain.ChartRecord{}}
}

// Create keeps the first record per cache key, like the unique index.
func (m *memStore) Create(_ context.Context, rec domain.ChartRecord) (domain.ChartRecord, error) {
	if m.beforeCreate != nil {
		m.beforeCreate(rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.CacheKey == rec.CacheKey {
			return existing, nil
		}
	}
	m.creates++
	m.byID[rec.ID] = rec
	return rec, nil
}

func (m *memStore) put(rec domain.ChartRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.ID] = rec
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.ChartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return domain.ChartRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) GetByCacheKey(_ context.Context, key string) (domain.ChartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byID {
		if rec.CacheKey == key {
			return rec, nil
		}
	}
	return domain.ChartRecord{}, domain.ErrNotFound
}

func (m *memStore) List(_ context.Context, opts domain.ListOpts) ([]domain.ChartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChartRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

type memCache struct {
	mu          sync.Mutex
	byKey       map[string]domain.ChartRecord
	invalidated []string
	fail        error
}

func newMemCache() *memCache {
	return &memCache{byKey: map[string]domain.ChartRecord{}}
}

func (m *memCache) Set(_ context.Context, rec domain.ChartRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[rec.CacheKey] = rec
	return nil
}

func (m *memCache) Get(_ context.Context, key string) (domain.ChartRecord, error) {
	if m.fail != nil {
		return domain.ChartRecord{}, m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byKey[key]
	if !ok {
		return domain.ChartRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memCache) GetByID(_ context.Context, id string) (domain.ChartRecord, error) {
	if m.fail != nil {
		return domain.ChartRecord{}, m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byKey {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.ChartRecord{}, domain.ErrNotFound
}

func (m *memCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, key)
	m.invalidated = append(m.invalidated, key)
	return nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: map[string]bool{}}
}

func (m *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
	}, nil
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streams   map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: map[string][][]byte{}, streams: map[string][][]byte{}}
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], payload)
	return nil
}

func (m *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (m *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[stream] = append(m.streams[stream], payload)
	return nil
}

// StreamRead numbers entries "1-0", "2-0", ... in append order.
func (m *memBus) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, _, _ := strings.Cut(lastID, "-")
	start, err := strconv.Atoi(seq)
	if err != nil {
		return nil, fmt.Errorf("bad stream id %q", lastID)
	}
	var out []domain.StreamMessage
	for i := start; i < len(m.streams[stream]) && len(out) < count; i++ {
		out = append(out, domain.StreamMessage{ID: fmt.Sprintf("%d-0", i+1), Payload: m.streams[stream][i]})
	}
	return out, nil
}

type memExporter struct {
	reports []domain.BatchReport
	fail    error
}

func (m *memExporter) ExportBatch(_ context.Context, r domain.BatchReport) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	m.reports = append(m.reports, r)
	return "exports/" + r.ID + ".jsonl", nil
}

type recNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recNotifier) Notify(_ context.Context, event, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}
