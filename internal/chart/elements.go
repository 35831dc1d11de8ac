package chart

import "github.com/alanyoungcy/natalchart/internal/domain"

// TallyElements counts one point per element bucket. Angles are skipped
// unless includeAngles is set.
func TallyElements(points []domain.ChartPoint, includeAngles bool) domain.ElementalBalance {
	var b domain.ElementalBalance
	for _, p := range points {
		if p.IsAngle() && !includeAngles {
			continue
		}
		b = b.Add(p.Sign.Element())
	}
	return b
}
