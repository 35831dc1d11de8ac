package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

const maxLineBytes = 1 << 20

// DecodeRequests reads one JSON ChartRequest per line. Blank lines and
// lines starting with '#' are skipped. A malformed line fails the whole
// input with its line number.
func DecodeRequests(r io.Reader) ([]domain.ChartRequest, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []domain.ChartRequest
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var req domain.ChartRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("batch input line %d: %v: %w", line, err, domain.ErrInvalidBatch)
		}
		out = append(out, req)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("batch input: read: %w", err)
	}
	return out, nil
}

// ReadRequestsFile decodes a JSONL request file.
func ReadRequestsFile(path string) ([]domain.ChartRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch input: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeRequests(f)
}
