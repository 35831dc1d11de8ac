package chart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

func TestAngularDeltaWraparound(t *testing.T) {
	cases := []struct {
		from, to float64
		want     float64
		retro    bool
	}{
		{359, 1, 2, false},
		{1, 359, -2, true},
		{10, 11, 1, false},
		{11, 10, -1, true},
		{0, 180, 180, false},
		{180, 0, 180, false},
	}
	for _, c := range cases {
		if got := AngularDelta(c.from, c.to); got != c.want {
			t.Errorf("AngularDelta(%v,%v): want=%v got=%v", c.from, c.to, c.want, got)
		}
		if got := IsRetrograde(c.from, c.to); got != c.retro {
			t.Errorf("IsRetrograde(%v,%v): want=%v got=%v", c.from, c.to, c.retro, got)
		}
	}
}

func TestAngularDeltaRange(t *testing.T) {
	for from := 0.0; from < 360; from += 7.5 {
		for to := 0.0; to < 360; to += 11.25 {
			d := AngularDelta(from, to)
			if d <= -180 || d > 180 {
				t.Fatalf("AngularDelta(%v,%v)=%v outside (-180,180]", from, to, d)
			}
		}
	}
}

func TestDetectRetrograde(t *testing.T) {
	p := newStubProvider()
	at := stubEpoch

	p.set(domain.Mercury, 359.99, -1.2)
	retro, err := DetectRetrograde(context.Background(), p, domain.Mercury, at, 0)
	if err != nil {
		t.Fatalf("DetectRetrograde: %v", err)
	}
	if !retro {
		t.Fatal("Mercury moving backwards should be retrograde")
	}

	p.set(domain.Mars, 359.99, 0.7)
	retro, err = DetectRetrograde(context.Background(), p, domain.Mars, at, 6*time.Hour)
	if err != nil {
		t.Fatalf("DetectRetrograde: %v", err)
	}
	if retro {
		t.Fatal("Mars crossing 0° Aries forwards should be direct")
	}

	_, err = DetectRetrograde(context.Background(), p, domain.Chiron, at, 0)
	if !errors.Is(err, domain.ErrEphemerisUnavailable) {
		t.Fatalf("missing body: want ErrEphemerisUnavailable got %v", err)
	}
}
