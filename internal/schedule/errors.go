package schedule

import "errors"

var (
	ErrInvalidStep     = errors.New("schedule: slot step must be positive")
	ErrInvalidTime     = errors.New("schedule: malformed date or time of day")
	ErrInvertedRange   = errors.New("schedule: end is before start")
	ErrNonPositiveSpan = errors.New("schedule: performance must end after it starts")
	ErrEmptyFrame      = errors.New("schedule: slot frame needs at least two slots")
)
