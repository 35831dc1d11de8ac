package chart

import (
	"errors"
	"reflect"
	"testing"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

func TestEqualHouseScenario(t *testing.T) {
	a := Angles{Ascendant: 182, Midheaven: 92}
	if got := (EqualHouse{}).House(200, a); got != 1 {
		t.Fatalf("asc 182, point 200: want house 1 got %d", got)
	}
	if got := (EqualHouse{}).House(181.9, a); got != 12 {
		t.Fatalf("asc 182, point 181.9: want house 12 got %d", got)
	}
	if got := (EqualHouse{}).House(2, a); got != 7 {
		t.Fatalf("asc 182, point 2: want house 7 got %d", got)
	}
	cusps := (EqualHouse{}).Cusps(a)
	for i, c := range cusps {
		if want := NormalizeLongitude(182 + float64(i)*30); c != want {
			t.Errorf("cusp %d: want=%v got=%v", i+1, want, c)
		}
	}
}

func TestHouseSystemsInvariants(t *testing.T) {
	systems := []HouseSystem{EqualHouse{}, WholeSign{}, Porphyry{}}
	for _, hs := range systems {
		for lst := 0.0; lst < 24; lst += 1.7 {
			a, err := ComputeAngles(lst, 40.7, 23.44)
			if err != nil {
				t.Fatalf("ComputeAngles: %v", err)
			}
			if h := hs.House(a.Ascendant, a); h != 1 {
				t.Fatalf("%s: ascendant %v in house %d", hs.Name(), a.Ascendant, h)
			}
			for lon := 0.0; lon < 360; lon += 3.3 {
				if h := hs.House(lon, a); h < 1 || h > 12 {
					t.Fatalf("%s: lon %v in house %d", hs.Name(), lon, h)
				}
			}
		}
	}
}

func TestWholeSign(t *testing.T) {
	a := Angles{Ascendant: 95, Midheaven: 5}
	ws := WholeSign{}
	if h := ws.House(91, a); h != 1 {
		t.Fatalf("91° with Cancer rising: want 1 got %d", h)
	}
	if h := ws.House(89, a); h != 12 {
		t.Fatalf("89° with Cancer rising: want 12 got %d", h)
	}
	if c := ws.Cusps(a); c[0] != 90 || c[3] != 180 {
		t.Fatalf("cusps: got %v", c)
	}

	// 29°59'50" Aries displays as 0°00' Taurus but Aries is still rising.
	late := Angles{Ascendant: 29.9972, Midheaven: 300}
	if c := ws.Cusps(late); c[0] != 0 || c[11] != 330 {
		t.Fatalf("late aries cusps: got %v", c)
	}
	if h := ws.House(late.Ascendant, late); h != 1 {
		t.Fatalf("ascendant house: want 1 got %d", h)
	}
}

func TestPorphyryCuspsOnAngles(t *testing.T) {
	a, err := ComputeAngles(3.2, 48.85, 23.44)
	if err != nil {
		t.Fatalf("ComputeAngles: %v", err)
	}
	c := (Porphyry{}).Cusps(a)
	if c[0] != a.Ascendant || c[3] != a.ImumCoeli() || c[6] != a.Descendant() || c[9] != a.Midheaven {
		t.Fatalf("angles should be cusps 1/4/7/10: cusps=%v angles=%+v", c, a)
	}
	if h := (Porphyry{}).House(a.Midheaven, a); h != 10 {
		t.Fatalf("midheaven: want house 10 got %d", h)
	}
}

func TestHouseSystemRegistry(t *testing.T) {
	r := DefaultHouseSystems()
	if got, want := r.List(), []string{"equal", "porphyry", "whole-sign"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List: want=%v got=%v", want, got)
	}
	hs, err := r.Get("")
	if err != nil || hs.Name() != "equal" {
		t.Fatalf("Get(\"\"): want equal got %v, %v", hs, err)
	}
	hs, err = r.Get("Whole_Sign")
	if err != nil || hs.Name() != "whole-sign" {
		t.Fatalf("Get(Whole_Sign): got %v, %v", hs, err)
	}
	if _, err := r.Get("placidus"); !errors.Is(err, domain.ErrUnsupportedHouseSystem) {
		t.Fatalf("Get(placidus): want ErrUnsupportedHouseSystem got %v", err)
	}
}
