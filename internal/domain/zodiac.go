package domain

import (
	"fmt"
	"strings"
)

// Sign is one of the twelve 30° segments of the ecliptic, starting at 0°
// Aries. The zero value is Aries.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

// SignCount is the number of zodiac signs.
const SignCount = 12

var signNames = [SignCount]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Element is one of the four classical elements.
type Element string

const (
	Fire  Element = "Fire"
	Earth Element = "Earth"
	Air   Element = "Air"
	Water Element = "Water"
)

// Elements lists the four elements in their conventional order.
var Elements = [4]Element{Fire, Earth, Air, Water}

// signElements follows the fire/earth/air/water cycle from Aries.
var signElements = [SignCount]Element{
	Fire, Earth, Air, Water,
	Fire, Earth, Air, Water,
	Fire, Earth, Air, Water,
}

// SignFromIndex wraps any integer into a valid sign.
func SignFromIndex(i int) Sign {
	return Sign(((i % SignCount) + SignCount) % SignCount)
}

// String returns the English sign name.
func (s Sign) String() string {
	if s < 0 || s >= SignCount {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

// Element returns the element the sign belongs to.
func (s Sign) Element() Element {
	return signElements[SignFromIndex(int(s))]
}

// StartLongitude is the ecliptic longitude of 0° of the sign.
func (s Sign) StartLongitude() float64 {
	return float64(SignFromIndex(int(s))) * 30
}

// MarshalText encodes the sign by name.
func (s Sign) MarshalText() ([]byte, error) {
	if s < 0 || s >= SignCount {
		return nil, fmt.Errorf("invalid sign %d", int(s))
	}
	return []byte(signNames[s]), nil
}

// UnmarshalText decodes a sign name, ignoring case.
func (s *Sign) UnmarshalText(text []byte) error {
	name := strings.TrimSpace(string(text))
	for i, n := range signNames {
		if strings.EqualFold(n, name) {
			*s = Sign(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sign %q", name)
}
