package domain

import "time"

// ChartRequest is what a caller submits to the chart service.
type ChartRequest struct {
	Birth   BirthMoment  `json:"birth"`
	Options ChartOptions `json:"options"`
	// Label is free text the caller can use to find the chart again.
	Label string `json:"label,omitempty"`
}

// ChartRecord is a computed chart as stored and served by the service.
type ChartRecord struct {
	ID        string       `json:"id"`
	CacheKey  string       `json:"cache_key"`
	Label     string       `json:"label,omitempty"`
	Birth     BirthMoment  `json:"birth"`
	Options   ChartOptions `json:"options"`
	Chart     NatalChart   `json:"chart"`
	CreatedAt time.Time    `json:"created_at"`
}

// BatchStatus tracks the lifecycle of a batch run.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchPartial   BatchStatus = "partial"
	BatchFailed    BatchStatus = "failed"
)

// BatchItemResult is the outcome for one request of a batch. Exactly one of
// Record and Error is set.
type BatchItemResult struct {
	Index  int          `json:"index"`
	Label  string       `json:"label,omitempty"`
	Record *ChartRecord `json:"record,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BatchReport summarises a finished batch.
type BatchReport struct {
	ID         string            `json:"id"`
	Status     BatchStatus       `json:"status"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	ExportPath string            `json:"export_path,omitempty"`
	Results    []BatchItemResult `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// BatchEvent is a finished batch summary read back from the event log.
// Report.Results is always empty.
type BatchEvent struct {
	StreamID string      `json:"stream_id"`
	Report   BatchReport `json:"report"`
}

// BatchProgress is published while a batch runs.
type BatchProgress struct {
	BatchID   string      `json:"batch_id"`
	Status    BatchStatus `json:"status"`
	Done      int         `json:"done"`
	Failed    int         `json:"failed"`
	Total     int         `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}
