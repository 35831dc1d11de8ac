package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// FixtureRow is one body's state at the fixture epoch.
type FixtureRow struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	// Speed is the daily motion in longitude, negative when retrograde.
	Speed float64 `json:"speed"`
}

// FixtureData is the on-disk form of a fixture.
type FixtureData struct {
	Epoch     time.Time                  `json:"epoch"`
	Tolerance float64                    `json:"tolerance"`
	Bodies    map[domain.Body]FixtureRow `json:"bodies"`
}

// Fixture replays a table of positions with linear motion from an epoch.
// It is meant for tests and for reproducing a chart from recorded data.
type Fixture struct {
	data FixtureData
}

var _ domain.EphemerisProvider = (*Fixture)(nil)

// NewFixture builds a fixture provider from in-memory rows.
func NewFixture(data FixtureData) *Fixture {
	rows := make(map[domain.Body]FixtureRow, len(data.Bodies))
	for b, r := range data.Bodies {
		rows[b] = r
	}
	data.Bodies = rows
	return &Fixture{data: data}
}

// LoadFixture decodes a JSON fixture.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var data FixtureData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("ephemeris: decode fixture: %w", err)
	}
	if data.Epoch.IsZero() {
		return nil, fmt.Errorf("ephemeris: fixture has no epoch")
	}
	for b := range data.Bodies {
		if !b.Valid() {
			return nil, fmt.Errorf("ephemeris: fixture body %q: %w", b, ErrUnsupportedBody)
		}
	}
	return NewFixture(data), nil
}

// LoadFixtureFile reads a JSON fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// Tolerance implements domain.EphemerisProvider.
func (f *Fixture) Tolerance() float64 { return f.data.Tolerance }

// Position implements domain.EphemerisProvider.
func (f *Fixture) Position(ctx context.Context, body domain.Body, at time.Time) (domain.EclipticPosition, error) {
	if err := ctx.Err(); err != nil {
		return domain.EclipticPosition{}, err
	}
	row, ok := f.data.Bodies[body]
	if !ok {
		return domain.EclipticPosition{}, fmt.Errorf("ephemeris: fixture has no %s: %w", body, ErrUnsupportedBody)
	}
	days := at.Sub(f.data.Epoch).Hours() / 24
	return domain.EclipticPosition{
		Body:      body,
		Longitude: rev(row.Longitude + row.Speed*days),
		Latitude:  row.Latitude,
		At:        at,
	}, nil
}
