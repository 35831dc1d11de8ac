package domain

import "errors"

// Chart calculation failures. Every one of these aborts the calculation for
// the chart in question; there is no partial result.
var (
	ErrInvalidBirthMoment     = errors.New("invalid birth moment")
	ErrInvalidCoordinates     = errors.New("invalid coordinates")
	ErrDegenerateAscendant    = errors.New("degenerate ascendant")
	ErrEphemerisUnavailable   = errors.New("ephemeris unavailable")
	ErrUnsupportedHouseSystem = errors.New("unsupported house system")
	ErrInvalidOptions         = errors.New("invalid chart options")
)

// Service-level failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")
	ErrInvalidBatch = errors.New("invalid batch")
)
