package chart

import (
	"fmt"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// ZodiacPosition is a longitude split into sign, degree and arcminute.
type ZodiacPosition struct {
	Longitude float64
	SignIndex int
	Sign      domain.Sign
	Degree    int
	Arcminute int
	Element   domain.Element
}

// Text renders the in-sign position as 15°30'.
func (z ZodiacPosition) Text() string {
	return FormatDegree(z.Degree, z.Arcminute)
}

// NormalizeLongitude wraps lon into [0,360).
func NormalizeLongitude(lon float64) float64 {
	return wrap(lon, 360)
}

// Normalize places lon in the zodiac. Arcminutes are rounded to the nearest
// minute; a rounded 60' carries into the degree and a carried 30° rolls
// into the next sign, so 29°59'59" Pisces reads as 0°00' Aries.
func Normalize(lon float64) ZodiacPosition {
	norm := NormalizeLongitude(lon)

	idx := int(norm / 30)
	if idx > 11 {
		idx = 11
	}
	inSign := norm - float64(idx)*30
	deg := int(inSign)
	min := int(roundHalfUp((inSign - float64(deg)) * 60))
	if min >= 60 {
		min -= 60
		deg++
	}
	if deg >= 30 {
		deg -= 30
		idx = (idx + 1) % domain.SignCount
	}

	sign := domain.SignFromIndex(idx)
	return ZodiacPosition{
		Longitude: norm,
		SignIndex: idx,
		Sign:      sign,
		Degree:    deg,
		Arcminute: min,
		Element:   sign.Element(),
	}
}

// FormatDegree renders a degree/arcminute pair.
func FormatDegree(deg, min int) string {
	return fmt.Sprintf("%d°%02d'", deg, min)
}

func roundHalfUp(v float64) float64 {
	return float64(int(v + 0.5))
}
