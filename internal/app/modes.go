package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/server"
	"github.com/alanyoungcy/natalchart/internal/server/handler"
	"github.com/alanyoungcy/natalchart/internal/server/ws"
	"github.com/alanyoungcy/natalchart/internal/service"
)

const shutdownTimeout = 5 * time.Second

// ServerMode serves the HTTP API and the progress WebSocket.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// BatchMode computes the charts listed in batch.input_path and exits.
func (a *App) BatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting batch mode",
		slog.String("input", a.cfg.Batch.InputPath),
	)
	report, err := a.runInputBatch(ctx, deps)
	if err != nil {
		return err
	}
	if report.Status == domain.BatchFailed {
		return fmt.Errorf("batch mode: all %d items failed", report.Total)
	}
	return nil
}

// FullMode serves the API and, when an input file is configured, runs it
// as a batch alongside. The batch's outcome does not stop the server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	if a.cfg.Batch.InputPath != "" {
		g.Go(func() error {
			if _, err := a.runInputBatch(ctx, deps); err != nil {
				a.logger.ErrorContext(ctx, "input batch failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *App) runInputBatch(ctx context.Context, deps *Dependencies) (domain.BatchReport, error) {
	reqs, err := service.ReadRequestsFile(a.cfg.Batch.InputPath)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("batch mode: %w", err)
	}

	report, err := deps.Batches.Run(ctx, "", reqs)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("batch mode: %w", err)
	}

	a.logger.InfoContext(ctx, "batch report",
		slog.String("batch_id", report.ID),
		slog.String("status", string(report.Status)),
		slog.Int("total", report.Total),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("export_path", report.ExportPath),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	for _, item := range report.Results {
		if item.Error != "" {
			a.logger.WarnContext(ctx, "batch item failed",
				slog.String("batch_id", report.ID),
				slog.Int("index", item.Index),
				slog.String("error", item.Error),
			)
		}
	}
	return report, nil
}

// startHTTPServer adds the API server and, when a signal bus is wired, the
// WebSocket hub to g. The server shuts down gracefully when ctx is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, ws.Config{
			Mode:      a.cfg.Mode,
			Channels:  []string{service.ProgressChannelPattern},
			StartedAt: startedAt,
		}, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("ws hub: %w", err)
			}
			return nil
		})
	}

	var exportPath func(string) string
	if deps.Exporter != nil {
		exportPath = deps.Exporter.ExportPath
	}
	var progress func(string) string
	if hub != nil {
		progress = service.ProgressChannel
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Checks, deps.Charts.Tolerance(), a.logger),
		Charts:  handler.NewChartHandler(deps.Charts, a.logger),
		Batches: handler.NewBatchHandler(deps.Batches, deps.BlobReader, exportPath, progress, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
