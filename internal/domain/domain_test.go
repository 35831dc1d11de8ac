package domain

import (
	"encoding/json"
	"testing"
)

func TestSignElementCycle(t *testing.T) {
	cases := []struct {
		sign Sign
		want Element
	}{
		{Aries, Fire}, {Taurus, Earth}, {Gemini, Air}, {Cancer, Water},
		{Leo, Fire}, {Virgo, Earth}, {Libra, Air}, {Scorpio, Water},
		{Sagittarius, Fire}, {Capricorn, Earth}, {Aquarius, Air}, {Pisces, Water},
	}
	for _, c := range cases {
		if got := c.sign.Element(); got != c.want {
			t.Errorf("%s element: want=%s got=%s", c.sign, c.want, got)
		}
	}
}

func TestSignFromIndexWraps(t *testing.T) {
	if got := SignFromIndex(12); got != Aries {
		t.Fatalf("SignFromIndex(12): want=Aries got=%s", got)
	}
	if got := SignFromIndex(-1); got != Pisces {
		t.Fatalf("SignFromIndex(-1): want=Pisces got=%s", got)
	}
}

func TestSignTextRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Sagittarius)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"Sagittarius"` {
		t.Fatalf("marshal: want=%q got=%q", `"Sagittarius"`, raw)
	}
	var s Sign
	if err := json.Unmarshal([]byte(`"scorpio"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != Scorpio {
		t.Fatalf("unmarshal: want=Scorpio got=%s", s)
	}
	if err := json.Unmarshal([]byte(`"Ophiuchus"`), &s); err == nil {
		t.Fatal("expected error for unknown sign")
	}
}

func TestParseBody(t *testing.T) {
	cases := map[string]Body{
		"sun":        Sun,
		"NorthNode":  NorthNode,
		"north_node": NorthNode,
		"north-node": NorthNode,
		"LILITH":     Lilith,
	}
	for in, want := range cases {
		got, err := ParseBody(in)
		if err != nil {
			t.Fatalf("ParseBody(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseBody(%q): want=%s got=%s", in, want, got)
		}
	}
	if _, err := ParseBody("Vulcan"); err == nil {
		t.Fatal("expected error for unknown body")
	}
}

func TestSortBodiesCanonicalOrder(t *testing.T) {
	got := SortBodies([]Body{Pluto, Sun, "Vulcan", Moon, Sun, Lilith})
	want := []Body{Sun, Moon, Pluto, Lilith}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
	if n := len(DefaultBodies()); n != 10 {
		t.Fatalf("DefaultBodies: want=10 got=%d", n)
	}
}

func TestElementalBalance(t *testing.T) {
	var b ElementalBalance
	b = b.Add(Fire).Add(Fire).Add(Water)
	if b.Total() != 3 {
		t.Fatalf("Total: want=3 got=%d", b.Total())
	}
	if b.Dominant() != Fire {
		t.Fatalf("Dominant: want=Fire got=%s", b.Dominant())
	}
	if (ElementalBalance{}).Dominant() != "" {
		t.Fatal("empty balance should have no dominant element")
	}
}

func TestNatalChartPointsOrder(t *testing.T) {
	c := NatalChart{
		Angles: []ChartPoint{{Name: Ascendant, Kind: PointAngle}, {Name: Midheaven, Kind: PointAngle}},
		Bodies: []ChartPoint{{Name: "Sun", Kind: PointBody}},
	}
	pts := c.Points()
	if len(pts) != 3 || pts[0].Name != Ascendant || pts[2].Name != "Sun" {
		t.Fatalf("Points: unexpected order %+v", pts)
	}
	if _, ok := c.Point("Moon"); ok {
		t.Fatal("Point(Moon) should not be found")
	}
	if p, ok := c.Point(Midheaven); !ok || !p.IsAngle() {
		t.Fatalf("Point(Midheaven): got %+v ok=%v", p, ok)
	}
}
