package domain

// AspectType names a classified angular relationship.
type AspectType string

const (
	Conjunction    AspectType = "conjunction"
	SemiSextile    AspectType = "semi-sextile"
	SemiSquare     AspectType = "semi-square"
	Sextile        AspectType = "sextile"
	Quintile       AspectType = "quintile"
	Square         AspectType = "square"
	Trine          AspectType = "trine"
	Sesquiquadrate AspectType = "sesquiquadrate"
	Biquintile     AspectType = "biquintile"
	Quincunx       AspectType = "quincunx"
	Opposition     AspectType = "opposition"
)

// AspectNature is the interpretive family of an aspect.
type AspectNature string

const (
	Harmonic AspectNature = "harmonic"
	Tense    AspectNature = "tense"
	Neutral  AspectNature = "neutral"
	Creative AspectNature = "creative"
)

// Aspect is a detected relationship between two chart points. A and B are
// point names in canonical chart order.
type Aspect struct {
	A          string       `json:"a"`
	B          string       `json:"b"`
	Type       AspectType   `json:"type"`
	ExactAngle float64      `json:"exact_angle"`
	Separation float64      `json:"separation"`
	Orb        float64      `json:"orb"`
	Nature     AspectNature `json:"nature"`
}

// Involves reports whether the aspect touches the named point.
func (a Aspect) Involves(name string) bool {
	return a.A == name || a.B == name
}
