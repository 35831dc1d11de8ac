package handler

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// chartRequestBody is the wire form of POST /api/charts.
type chartRequestBody struct {
	Label   string      `json:"label" validate:"max=200"`
	Birth   birthBody   `json:"birth"`
	Options optionsBody `json:"options"`
}

type birthBody struct {
	Date             string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string   `json:"time" validate:"omitempty,datetime=15:04"`
	Zone             string   `json:"zone" validate:"omitempty,timezone,excluded_with=UTCOffsetMinutes"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes" validate:"omitempty,gte=-1080,lte=1080"`
	Latitude         *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type optionsBody struct {
	HouseSystem             string             `json:"house_system" validate:"max=32"`
	Bodies                  []string           `json:"bodies" validate:"omitempty,max=13,dive,required"`
	Orbs                    map[string]float64 `json:"orbs" validate:"omitempty,dive,keys,required,endkeys,gte=0,lte=180"`
	MinorAspects            *bool              `json:"minor_aspects"`
	AspectAngles            *bool              `json:"aspect_angles"`
	ElementAngles           *bool              `json:"element_angles"`
	RetrogradeWindowMinutes int                `json:"retrograde_window_minutes" validate:"gte=0,lte=1440"`
	FixedObliquity          *bool              `json:"fixed_obliquity"`
}

// toDomain converts a validated body. Body names are resolved here so an
// unknown planet is reported against its field.
func (b chartRequestBody) toDomain(prefix string) (domain.ChartRequest, error) {
	date, err := time.Parse(time.DateOnly, b.Birth.Date)
	if err != nil {
		return domain.ChartRequest{}, fieldError{prefix + "birth.date", "must match the layout 2006-01-02"}
	}

	req := domain.ChartRequest{
		Label: b.Label,
		Birth: domain.BirthMoment{
			Date:             domain.CivilDate{Year: date.Year(), Month: int(date.Month()), Day: date.Day()},
			Zone:             b.Birth.Zone,
			UTCOffsetMinutes: b.Birth.UTCOffsetMinutes,
			Latitude:         *b.Birth.Latitude,
			Longitude:        *b.Birth.Longitude,
		},
		Options: domain.ChartOptions{
			HouseSystem:             b.Options.HouseSystem,
			MinorAspects:            b.Options.MinorAspects,
			AspectAngles:            b.Options.AspectAngles,
			ElementAngles:           b.Options.ElementAngles,
			RetrogradeWindowMinutes: b.Options.RetrogradeWindowMinutes,
			FixedObliquity:          b.Options.FixedObliquity,
		},
	}

	if b.Birth.Time != "" {
		tod, err := time.Parse("15:04", b.Birth.Time)
		if err != nil {
			return domain.ChartRequest{}, fieldError{prefix + "birth.time", "must match the layout 15:04"}
		}
		req.Birth.Time = &domain.TimeOfDay{Hour: tod.Hour(), Minute: tod.Minute()}
	}

	for i, name := range b.Options.Bodies {
		body, err := domain.ParseBody(name)
		if err != nil {
			return domain.ChartRequest{}, fieldError{fmt.Sprintf("%soptions.bodies[%d]", prefix, i), "unknown body"}
		}
		req.Options.Bodies = append(req.Options.Bodies, body)
	}

	if len(b.Options.Orbs) > 0 {
		req.Options.Orbs = make(map[domain.AspectType]float64, len(b.Options.Orbs))
		for k, v := range b.Options.Orbs {
			req.Options.Orbs[domain.AspectType(k)] = v
		}
	}
	return req, nil
}

// batchRequestBody is the wire form of POST /api/batches.
type batchRequestBody struct {
	ID       string             `json:"id" validate:"omitempty,uuid"`
	Requests []chartRequestBody `json:"requests" validate:"required,min=1,dive"`
}
