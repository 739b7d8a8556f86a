package appointment

import (
	"errors"

	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

// Validation errors raised by the expansion pipeline.
var (
	ErrInvalidTimeRange          = schedule.ErrInvalidTimeRange
	ErrInvalidTimezone           = schedule.ErrInvalidTimezone
	ErrInvalidRecurrence         = schedule.ErrInvalidRecurrence
	ErrInvalidDuration           = schedule.ErrInvalidDuration
	ErrSlotDurationExceedsWindow = schedule.ErrSlotDurationExceedsWindow
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrConflictDetected        = errors.New("slot conflicts with an existing slot")
	ErrSlotUnavailable         = errors.New("slot is not available")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNotCancellable          = errors.New("appointment cannot be cancelled")
	ErrNotReschedulable        = errors.New("appointment cannot be rescheduled")
	ErrAvailabilityHasBookings = errors.New("availability has booked slots")
	ErrDuplicateNumber         = errors.New("appointment number already exists")
)
