package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ChartService is what the chart endpoints need from the service layer.
type ChartService interface {
	Calculate(ctx context.Context, req domain.ChartRequest) (domain.ChartRecord, error)
	Get(ctx context.Context, id string) (domain.ChartRecord, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.ChartRecord, int64, error)
	HouseSystems() []string
}

// ChartHandler serves /api/charts and /api/house-systems.
type ChartHandler struct {
	charts   ChartService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewChartHandler creates a ChartHandler.
func NewChartHandler(charts ChartService, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{
		charts:   charts,
		validate: newValidator(),
		logger:   logger.With(slog.String("handler", "charts")),
	}
}

type listChartsResponse struct {
	Charts []domain.ChartRecord `json:"charts"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// CreateChart computes (or recalls) a chart.
// POST /api/charts
func (h *ChartHandler) CreateChart(w http.ResponseWriter, r *http.Request) {
	var body chartRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Details: validationDetails(err)})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Details: validationDetails(err)})
		return
	}
	req, err := body.toDomain("")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Details: validationDetails(err)})
		return
	}

	rec, err := h.charts.Calculate(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "calculate chart failed", slog.String("error", err.Error()))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetChart returns one chart by ID.
// GET /api/charts/{id}
func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.charts.Get(r.Context(), id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "chart not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get chart failed",
			slog.String("chart_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "failed to get chart")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListCharts pages through stored charts.
// GET /api/charts?limit=50&offset=0
func (h *ChartHandler) ListCharts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	recs, total, err := h.charts.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list charts failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list charts")
		return
	}
	writeJSON(w, http.StatusOK, listChartsResponse{
		Charts: recs,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// ListHouseSystems reports the accepted house system selectors.
// GET /api/house-systems
func (h *ChartHandler) ListHouseSystems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"house_systems": h.charts.HouseSystems(),
	})
}
