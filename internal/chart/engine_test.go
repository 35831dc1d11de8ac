package chart

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

func stubBirth() domain.BirthMoment {
	return domain.BirthMoment{
		Date:      domain.CivilDate{Year: 2000, Month: 1, Day: 1},
		Time:      &domain.TimeOfDay{Hour: 12, Minute: 0},
		Latitude:  40.7128,
		Longitude: -74.006,
	}
}

func TestEngineCalculate(t *testing.T) {
	e := NewEngine(planetsStub())
	c, err := e.Calculate(context.Background(), stubBirth(), Options{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if len(c.Bodies) != 10 || len(c.Angles) != 2 {
		t.Fatalf("want 10 bodies and 2 angles got %d/%d", len(c.Bodies), len(c.Angles))
	}
	if c.HouseSystem != "equal" {
		t.Fatalf("house system: want=equal got=%s", c.HouseSystem)
	}
	if c.ReducedPrecision {
		t.Fatal("known birth time should not be reduced precision")
	}
	if c.EphemerisTolerance != 0.01 {
		t.Fatalf("tolerance: want=0.01 got=%v", c.EphemerisTolerance)
	}

	asc, ok := c.Point(domain.Ascendant)
	if !ok || asc.House != 1 || asc.Retrograde || asc.Kind != domain.PointAngle {
		t.Fatalf("ascendant: got %+v", asc)
	}
	mc, _ := c.Point(domain.Midheaven)
	if mc.Retrograde || mc.House < 1 || mc.House > 12 {
		t.Fatalf("midheaven: got %+v", mc)
	}

	for i, p := range c.Bodies {
		if want := domain.DefaultBodies()[i]; p.Name != string(want) {
			t.Fatalf("body %d: want=%s got=%s", i, want, p.Name)
		}
		if p.House < 1 || p.House > 12 {
			t.Fatalf("%s: house %d out of range", p.Name, p.House)
		}
		if want := p.Name == "Mercury"; p.Retrograde != want {
			t.Fatalf("%s: retrograde want=%v got=%v", p.Name, want, p.Retrograde)
		}
	}

	sun, _ := c.Point("Sun")
	if sun.Sign != domain.Aries || sun.DegreeText != "10°00'" || sun.Element != domain.Fire {
		t.Fatalf("sun: got %+v", sun)
	}

	if c.Elements.Total() != 10 {
		t.Fatalf("elements: want total 10 got %+v", c.Elements)
	}
	if want := (domain.ElementalBalance{Fire: 3, Earth: 3, Air: 2, Water: 2}); c.Elements != want {
		t.Fatalf("elements: want=%+v got=%+v", want, c.Elements)
	}

	if len(c.Aspects) != 28 {
		t.Fatalf("aspects: want 28 got %d", len(c.Aspects))
	}
	first := c.Aspects[0]
	if first.A != "Sun" || first.B != "Mercury" || first.Type != domain.Sextile {
		t.Fatalf("first aspect: got %+v", first)
	}
	for _, a := range c.Aspects {
		if a.Involves(domain.Ascendant) || a.Involves(domain.Midheaven) {
			t.Fatalf("angles should not form aspects by default: %+v", a)
		}
		if a.A == "Sun" && a.B == "Mars" && (a.Type != domain.Trine || a.Orb != 0) {
			t.Fatalf("sun-mars: want exact trine got %+v", a)
		}
	}
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(planetsStub(), WithDefaults(Options{MinorAspects: true}))
	c, err := e.Calculate(context.Background(), stubBirth(), Options{
		Bodies:                  []domain.Body{domain.Pluto, domain.Sun, domain.Moon},
		IncludeAnglesInElements: true,
		HouseSystem:             "whole-sign",
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	names := []string{}
	for _, p := range c.Bodies {
		names = append(names, p.Name)
	}
	if want := []string{"Sun", "Moon", "Pluto"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("bodies: want=%v got=%v", want, names)
	}
	if c.Elements.Total() != 5 {
		t.Fatalf("elements with angles: want 5 got %d", c.Elements.Total())
	}
	if c.HouseSystem != "whole-sign" {
		t.Fatalf("house system: want=whole-sign got=%s", c.HouseSystem)
	}

	all, err := e.Calculate(context.Background(), stubBirth(), Options{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(all.Aspects) != 45 {
		t.Fatalf("minor aspects from engine defaults: want 45 got %d", len(all.Aspects))
	}
}

func TestEngineResolve(t *testing.T) {
	e := NewEngine(planetsStub(), WithDefaults(Options{MinorAspects: true, HouseSystem: "whole-sign"}))

	opts, err := e.Resolve(domain.ChartOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !opts.MinorAspects || opts.HouseSystem != "whole-sign" || len(opts.Bodies) != 10 || opts.RetrogradeWindow != DefaultRetrogradeWindow {
		t.Fatalf("empty request should take the engine defaults, got %+v", opts)
	}

	off := false
	opts, err = e.Resolve(domain.ChartOptions{MinorAspects: &off, HouseSystem: "Porphyry"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if opts.MinorAspects {
		t.Fatal("an explicit false should switch the default off")
	}
	if opts.HouseSystem != "porphyry" {
		t.Errorf("house system: want=porphyry got=%s", opts.HouseSystem)
	}

	c, err := e.Calculate(context.Background(), stubBirth(), opts)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(c.Aspects) >= 45 {
		t.Errorf("major aspects only: want<45 got %d", len(c.Aspects))
	}
	for _, a := range c.Aspects {
		switch a.Type {
		case domain.SemiSextile, domain.SemiSquare, domain.Quintile, domain.Sesquiquadrate, domain.Biquintile, domain.Quincunx:
			t.Fatalf("minor aspect with minor_aspects=false: %+v", a)
		}
	}

	if _, err := e.Resolve(domain.ChartOptions{HouseSystem: "koch"}); !errors.Is(err, domain.ErrUnsupportedHouseSystem) {
		t.Errorf("koch: want ErrUnsupportedHouseSystem got %v", err)
	}
	if _, err := e.Resolve(domain.ChartOptions{RetrogradeWindowMinutes: -5}); !errors.Is(err, domain.ErrInvalidOptions) {
		t.Errorf("negative window: want ErrInvalidOptions got %v", err)
	}
}

func TestEngineMissingTime(t *testing.T) {
	b := stubBirth()
	b.Time = nil
	c, err := NewEngine(planetsStub()).Calculate(context.Background(), b, Options{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !c.ReducedPrecision {
		t.Fatal("missing birth time must be flagged")
	}
}

func TestEngineErrors(t *testing.T) {
	failing := planetsStub()
	failing.fail = errors.New("socket closed")

	polar := stubBirth()
	polar.Latitude = 90

	offMap := stubBirth()
	offMap.Longitude = 200

	badDate := stubBirth()
	badDate.Date.Day = 31
	badDate.Date.Month = 4

	cases := []struct {
		name     string
		provider domain.EphemerisProvider
		birth    domain.BirthMoment
		opts     Options
		want     error
	}{
		{"provider failure", failing, stubBirth(), Options{}, domain.ErrEphemerisUnavailable},
		{"unsupported body", planetsStub(), stubBirth(), Options{Bodies: []domain.Body{domain.Chiron}}, domain.ErrEphemerisUnavailable},
		{"polar", planetsStub(), polar, Options{}, domain.ErrDegenerateAscendant},
		{"coordinates", planetsStub(), offMap, Options{}, domain.ErrInvalidCoordinates},
		{"date", planetsStub(), badDate, Options{}, domain.ErrInvalidBirthMoment},
		{"house system", planetsStub(), stubBirth(), Options{HouseSystem: "koch"}, domain.ErrUnsupportedHouseSystem},
		{"unknown body", planetsStub(), stubBirth(), Options{Bodies: []domain.Body{"Vulcan"}}, domain.ErrInvalidOptions},
		{"unknown aspect", planetsStub(), stubBirth(), Options{Orbs: map[domain.AspectType]float64{"septile": 1}}, domain.ErrInvalidOptions},
	}
	for _, c := range cases {
		_, err := NewEngine(c.provider).Calculate(context.Background(), c.birth, c.opts)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: want %v got %v", c.name, c.want, err)
		}
	}

	_, err := NewEngine(failing).Calculate(context.Background(), stubBirth(), Options{})
	if !errors.Is(err, failing.fail) {
		t.Fatalf("provider error should stay in the chain: %v", err)
	}
}

func TestEngineConcurrentUse(t *testing.T) {
	e := NewEngine(planetsStub())
	want, err := e.Calculate(context.Background(), stubBirth(), Options{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]domain.NatalChart, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Calculate(context.Background(), stubBirth(), Options{})
		}(i)
	}
	wg.Wait()
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], want) {
			t.Fatalf("goroutine %d: result differs", i)
		}
	}
}
