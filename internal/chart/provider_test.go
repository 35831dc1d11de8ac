package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

var stubEpoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

type stubMotion struct {
	lon, speed float64
}

// stubProvider moves each body linearly from stubEpoch, degrees per day.
type stubProvider struct {
	mu     sync.RWMutex
	bodies map[domain.Body]stubMotion
	fail   error
	calls  int
}

func newStubProvider() *stubProvider {
	return &stubProvider{bodies: make(map[domain.Body]stubMotion)}
}

func (p *stubProvider) set(b domain.Body, lon, speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies[b] = stubMotion{lon: lon, speed: speed}
}

func (p *stubProvider) Position(_ context.Context, b domain.Body, at time.Time) (domain.EclipticPosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail != nil {
		return domain.EclipticPosition{}, p.fail
	}
	m, ok := p.bodies[b]
	if !ok {
		return domain.EclipticPosition{}, fmt.Errorf("stub: no data for %s", b)
	}
	days := at.Sub(stubEpoch).Hours() / 24
	return domain.EclipticPosition{Body: b, Longitude: NormalizeLongitude(m.lon + m.speed*days), At: at}, nil
}

func (p *stubProvider) Tolerance() float64 { return 0.01 }

// planetsStub places the ten planets one per sign from Aries, with
// Mercury retrograde.
func planetsStub() *stubProvider {
	p := newStubProvider()
	for i, b := range domain.DefaultBodies() {
		speed := 1.0
		if b == domain.Mercury {
			speed = -0.5
		}
		p.set(b, float64(i)*30+10, speed)
	}
	return p
}
