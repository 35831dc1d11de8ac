package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// BatchService is what the batch endpoints need from the service layer.
type BatchService interface {
	Start(ctx context.Context, batchID string, reqs []domain.ChartRequest) (string, error)
	Report(batchID string) (domain.BatchReport, error)
	History(ctx context.Context, after string, limit int) ([]domain.BatchEvent, error)
}

// BatchHandler serves /api/batches. Exports are optional; without a blob
// reader the export endpoint answers 404.
type BatchHandler struct {
	batches    BatchService
	exports    domain.BlobReader
	exportPath func(batchID string) string
	progress   func(batchID string) string
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewBatchHandler creates a BatchHandler. exportPath maps a batch ID to its
// export object; progress maps it to its pub/sub channel.
func NewBatchHandler(
	batches BatchService,
	exports domain.BlobReader,
	exportPath func(string) string,
	progress func(string) string,
	logger *slog.Logger,
) *BatchHandler {
	return &BatchHandler{
		batches:    batches,
		exports:    exports,
		exportPath: exportPath,
		progress:   progress,
		validate:   newValidator(),
		logger:     logger.With(slog.String("handler", "batches")),
	}
}

type startBatchResponse struct {
	BatchID         string             `json:"batch_id"`
	Status          domain.BatchStatus `json:"status"`
	Total           int                `json:"total"`
	ProgressChannel string             `json:"progress_channel,omitempty"`
}

// StartBatch validates every item and starts the batch in the background.
// POST /api/batches
func (h *BatchHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Details: validationDetails(err)})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Details: validationDetails(err)})
		return
	}

	reqs := make([]domain.ChartRequest, 0, len(body.Requests))
	for i, item := range body.Requests {
		req, err := item.toDomain(fmt.Sprintf("requests[%d].", i))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Details: validationDetails(err)})
			return
		}
		reqs = append(reqs, req)
	}

	id, err := h.batches.Start(r.Context(), body.ID, reqs)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "start batch failed", slog.String("error", err.Error()))
		}
		writeError(w, status, err.Error())
		return
	}

	resp := startBatchResponse{BatchID: id, Status: domain.BatchRunning, Total: len(reqs)}
	if h.progress != nil {
		resp.ProgressChannel = h.progress(id)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type listBatchesResponse struct {
	Batches []domain.BatchEvent `json:"batches"`
	// Next is the cursor for the following page; empty when nothing was
	// returned.
	Next string `json:"next,omitempty"`
}

// ListBatches pages through the log of finished batches, oldest first.
// GET /api/batches?after=<stream id>&limit=50
func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit := parseListOpts(r).Limit
	events, err := h.batches.History(r.Context(), r.URL.Query().Get("after"), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list batches failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}
	resp := listBatchesResponse{Batches: events}
	if n := len(events); n > 0 {
		resp.Next = events[n-1].StreamID
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBatch returns the report of a recent batch.
// GET /api/batches/{id}
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	report, err := h.batches.Report(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetExport streams the JSONL export of a finished batch. A HEAD request
// only reports whether the export exists.
// GET /api/batches/{id}/export
func (h *BatchHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil || h.exportPath == nil {
		writeError(w, http.StatusNotFound, "exports are disabled")
		return
	}

	id := r.PathValue("id")
	path := h.exportPath(id)
	ok, err := h.exports.Exists(r.Context(), path)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "check export failed",
			slog.String("batch_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to check export")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := h.exports.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "export not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "open export failed",
			slog.String("batch_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to open export")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "stream export interrupted",
			slog.String("batch_id", id),
			slog.String("error", err.Error()),
		)
	}
}
