package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ContentTypeJSONL is the media type of export objects.
const ContentTypeJSONL = "application/x-ndjson"

// DefaultExportPrefix is used when no prefix is configured.
const DefaultExportPrefix = "exports"

// multipartThreshold switches exports to the multipart uploader.
const multipartThreshold = 8 << 20

// Exporter implements domain.Exporter by writing one JSON line per batch
// item, preceded by a summary line, to {prefix}/{batchID}.jsonl.
type Exporter struct {
	writer domain.BlobWriter
	prefix string
}

// NewExporter creates an Exporter writing under prefix.
func NewExporter(w domain.BlobWriter, prefix string) *Exporter {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultExportPrefix
	}
	return &Exporter{writer: w, prefix: prefix}
}

// ExportPath returns the object key used for batchID.
func (e *Exporter) ExportPath(batchID string) string {
	return path.Join(e.prefix, batchID+".jsonl")
}

type exportSummary struct {
	Kind      string             `json:"kind"`
	ID        string             `json:"id"`
	Status    domain.BatchStatus `json:"status"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

type exportItem struct {
	Kind string `json:"kind"`
	domain.BatchItemResult
}

// ExportBatch uploads the report and returns the object key.
func (e *Exporter) ExportBatch(ctx context.Context, report domain.BatchReport) (string, error) {
	if report.ID == "" {
		return "", fmt.Errorf("s3blob: export: %w", domain.ErrInvalidBatch)
	}

	data, err := encodeReport(report)
	if err != nil {
		return "", fmt.Errorf("s3blob: export %s: %w", report.ID, err)
	}

	key := e.ExportPath(report.ID)
	if len(data) >= multipartThreshold {
		err = e.writer.PutMultipart(ctx, key, bytes.NewReader(data), MinPartSize)
	} else {
		err = e.writer.Put(ctx, key, bytes.NewReader(data), ContentTypeJSONL)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: export %s: %w", report.ID, err)
	}
	return key, nil
}

func encodeReport(report domain.BatchReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(exportSummary{
		Kind:      "summary",
		ID:        report.ID,
		Status:    report.Status,
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	}); err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	for _, r := range report.Results {
		if err := enc.Encode(exportItem{Kind: "item", BatchItemResult: r}); err != nil {
			return nil, fmt.Errorf("encode item %d: %w", r.Index, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Exporter = (*Exporter)(nil)
