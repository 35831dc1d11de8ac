package chart

import (
	"testing"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

func TestTallyElements(t *testing.T) {
	points := []domain.ChartPoint{
		{Name: domain.Ascendant, Kind: domain.PointAngle, Sign: domain.Leo},
		{Name: domain.Midheaven, Kind: domain.PointAngle, Sign: domain.Taurus},
	}
	for i := 0; i < 10; i++ {
		points = append(points, domain.ChartPoint{Name: "b", Kind: domain.PointBody, Sign: domain.SignFromIndex(i)})
	}

	bodies := TallyElements(points, false)
	if bodies.Total() != 10 {
		t.Fatalf("bodies only: want total 10 got %d", bodies.Total())
	}
	want := domain.ElementalBalance{Fire: 3, Earth: 3, Air: 2, Water: 2}
	if bodies != want {
		t.Fatalf("bodies only: want=%+v got=%+v", want, bodies)
	}

	all := TallyElements(points, true)
	if all.Total() != 12 || all.Fire != 4 || all.Earth != 4 {
		t.Fatalf("with angles: got %+v", all)
	}
}
