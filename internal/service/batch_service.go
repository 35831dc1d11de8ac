package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/notify"
)

// Channel and stream names used for batch signalling.
const (
	// ProgressChannelPrefix is followed by the batch ID.
	ProgressChannelPrefix = "batch:progress:"
	// ProgressChannelPattern matches every batch progress channel.
	ProgressChannelPattern = ProgressChannelPrefix + "*"
	// BatchEventsStream receives one entry per finished batch.
	BatchEventsStream = "batch:events"
)

const recentReports = 256

// ProgressChannel returns the pub/sub channel for batchID.
func ProgressChannel(batchID string) string {
	return ProgressChannelPrefix + batchID
}

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// BatchConfig bounds batch runs.
type BatchConfig struct {
	Concurrency int
	Timeout     time.Duration
	LockTTL     time.Duration
	MaxItems    int
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.Timeout + time.Minute
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 10000
	}
	return c
}

// BatchService computes many charts at once. Items fail independently;
// one bad birth record never aborts the rest of the batch. Locks, bus,
// exporter, notifier and audit are optional.
type BatchService struct {
	charts   *ChartService
	locks    domain.LockManager
	bus      domain.SignalBus
	exporter domain.Exporter
	notifier Notifier
	audit    domain.AuditStore
	cfg      BatchConfig
	logger   *slog.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	reports map[string]domain.BatchReport
	order   []string
}

// NewBatchService creates a BatchService.
func NewBatchService(
	charts *ChartService,
	locks domain.LockManager,
	bus domain.SignalBus,
	exporter domain.Exporter,
	notifier Notifier,
	audit domain.AuditStore,
	cfg BatchConfig,
	logger *slog.Logger,
) *BatchService {
	return &BatchService{
		charts:   charts,
		locks:    locks,
		bus:      bus,
		exporter: exporter,
		notifier: notifier,
		audit:    audit,
		cfg:      cfg.withDefaults(),
		logger:   logger.With(slog.String("component", "batch_service")),
		reports:  make(map[string]domain.BatchReport),
	}
}

// Run computes every request and blocks until the batch finishes. An empty
// batchID is replaced with a fresh UUID. The returned error covers only
// failures to start the batch; per-item failures live in the report.
func (s *BatchService) Run(ctx context.Context, batchID string, reqs []domain.ChartRequest) (domain.BatchReport, error) {
	batchID, unlock, err := s.prepare(ctx, batchID, reqs)
	if err != nil {
		return domain.BatchReport{}, err
	}
	defer unlock()
	return s.execute(ctx, batchID, reqs), nil
}

// Start validates and locks the batch, then runs it in the background.
// The run outlives ctx's cancellation but keeps its values.
func (s *BatchService) Start(ctx context.Context, batchID string, reqs []domain.ChartRequest) (string, error) {
	batchID, unlock, err := s.prepare(ctx, batchID, reqs)
	if err != nil {
		return "", err
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unlock()
		s.execute(runCtx, batchID, reqs)
	}()
	return batchID, nil
}

// Wait blocks until every batch started with Start has finished.
func (s *BatchService) Wait() {
	s.wg.Wait()
}

// Report returns the latest known state of a recent batch.
func (s *BatchService) Report(batchID string) (domain.BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[batchID]
	if !ok {
		return domain.BatchReport{}, fmt.Errorf("batch_service: report %s: %w", batchID, domain.ErrNotFound)
	}
	return r, nil
}

// History returns finished batch summaries logged after the stream entry
// after; "" starts from the oldest. Without a bus there is no log and the
// result is empty.
func (s *BatchService) History(ctx context.Context, after string, limit int) ([]domain.BatchEvent, error) {
	if s.bus == nil {
		return []domain.BatchEvent{}, nil
	}
	if after == "" {
		after = "0"
	}
	if limit <= 0 {
		limit = 50
	}

	msgs, err := s.bus.StreamRead(ctx, BatchEventsStream, after, limit)
	if err != nil {
		return nil, fmt.Errorf("batch_service: history: %w", err)
	}
	out := make([]domain.BatchEvent, 0, len(msgs))
	for _, m := range msgs {
		var r domain.BatchReport
		if err := json.Unmarshal(m.Payload, &r); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed batch event",
				slog.String("stream_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, domain.BatchEvent{StreamID: m.ID, Report: r})
	}
	return out, nil
}

func (s *BatchService) prepare(ctx context.Context, batchID string, reqs []domain.ChartRequest) (string, func(), error) {
	if len(reqs) == 0 {
		return "", nil, fmt.Errorf("batch_service: no requests: %w", domain.ErrInvalidBatch)
	}
	if len(reqs) > s.cfg.MaxItems {
		return "", nil, fmt.Errorf("batch_service: %d requests exceeds limit %d: %w",
			len(reqs), s.cfg.MaxItems, domain.ErrInvalidBatch)
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}

	unlock := func() {}
	if s.locks != nil {
		var err error
		unlock, err = s.locks.Acquire(ctx, "batch:"+batchID, s.cfg.LockTTL)
		if err != nil {
			return "", nil, fmt.Errorf("batch_service: lock %s: %w", batchID, err)
		}
	}

	s.remember(domain.BatchReport{
		ID:        batchID,
		Status:    domain.BatchRunning,
		Total:     len(reqs),
		StartedAt: time.Now().UTC(),
	})
	return batchID, unlock, nil
}

func (s *BatchService) execute(ctx context.Context, batchID string, reqs []domain.ChartRequest) domain.BatchReport {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	logger := s.logger.With(slog.String("batch_id", batchID))
	logger.InfoContext(ctx, "batch started",
		slog.Int("items", len(reqs)),
		slog.Int("concurrency", s.cfg.Concurrency),
	)

	report := domain.BatchReport{
		ID:        batchID,
		Status:    domain.BatchRunning,
		Total:     len(reqs),
		Results:   make([]domain.BatchItemResult, len(reqs)),
		StartedAt: time.Now().UTC(),
	}

	var (
		mu         sync.Mutex
		done, fail int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res := domain.BatchItemResult{Index: i, Label: req.Label}
			if err := gctx.Err(); err != nil {
				res.Error = err.Error()
			} else if rec, err := s.charts.Calculate(gctx, req); err != nil {
				res.Error = err.Error()
			} else {
				res.Record = &rec
			}
			report.Results[i] = res

			// Publishing under the lock keeps Done strictly increasing on
			// the progress channel.
			mu.Lock()
			defer mu.Unlock()
			done++
			if res.Error != "" {
				fail++
			}
			s.publish(gctx, domain.BatchProgress{
				BatchID:   batchID,
				Status:    domain.BatchRunning,
				Done:      done,
				Failed:    fail,
				Total:     len(reqs),
				Timestamp: time.Now().UTC(),
			})
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = fail
	report.Succeeded = len(reqs) - fail
	switch {
	case fail == 0:
		report.Status = domain.BatchCompleted
	case fail == len(reqs):
		report.Status = domain.BatchFailed
	default:
		report.Status = domain.BatchPartial
	}

	// The batch deadline may have passed; finishing steps get their own.
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer finishCancel()

	if s.exporter != nil {
		path, err := s.exporter.ExportBatch(finishCtx, report)
		if err != nil {
			logger.ErrorContext(finishCtx, "batch export failed", slog.String("error", err.Error()))
			s.notify(finishCtx, notify.EventError, "Batch export failed", fmt.Sprintf("batch %s: %v", batchID, err))
		} else {
			report.ExportPath = path
		}
	}
	report.FinishedAt = time.Now().UTC()

	s.publish(finishCtx, domain.BatchProgress{
		BatchID:   batchID,
		Status:    report.Status,
		Done:      len(reqs),
		Failed:    fail,
		Total:     len(reqs),
		Timestamp: report.FinishedAt,
	})
	s.appendEvent(finishCtx, report)
	s.remember(report)
	s.finish(finishCtx, report)

	logger.InfoContext(finishCtx, "batch finished",
		slog.String("status", string(report.Status)),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

func (s *BatchService) publish(ctx context.Context, p domain.BatchProgress) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ProgressChannel(p.BatchID), payload); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "progress publish failed",
			slog.String("batch_id", p.BatchID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BatchService) appendEvent(ctx context.Context, r domain.BatchReport) {
	if s.bus == nil {
		return
	}
	summary := r
	summary.Results = nil
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.bus.StreamAppend(ctx, BatchEventsStream, payload); err != nil {
		s.logger.WarnContext(ctx, "batch event append failed",
			slog.String("batch_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BatchService) finish(ctx context.Context, r domain.BatchReport) {
	detail := map[string]any{
		"batch_id":    r.ID,
		"status":      string(r.Status),
		"total":       r.Total,
		"failed":      r.Failed,
		"export_path": r.ExportPath,
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "batch.finished", detail); err != nil {
			s.logger.WarnContext(ctx, "audit log failed",
				slog.String("batch_id", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	event, title := notify.EventBatchCompleted, "Batch completed"
	if r.Status == domain.BatchFailed {
		event, title = notify.EventBatchFailed, "Batch failed"
	}
	s.notify(ctx, event, title, fmt.Sprintf("batch %s: %d/%d charts computed, %d failed",
		r.ID, r.Succeeded, r.Total, r.Failed))
}

func (s *BatchService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// remember keeps the last few reports for status lookups.
func (s *BatchService) remember(r domain.BatchReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		s.order = append(s.order, r.ID)
		if len(s.order) > recentReports {
			delete(s.reports, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.reports[r.ID] = r
}
