package appointment

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotBlocked   SlotStatus = "blocked"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotBooked, SlotCancelled, SlotBlocked:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// HoldsSlot reports whether an appointment in this status still owns its slot.
// Only cancellation gives the slot back.
func (s AppointmentStatus) HoldsSlot() bool {
	return s.Valid() && s != StatusCancelled
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:   {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusInProgress, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusInProgress:  {StatusCompleted, StatusCancelled},
	StatusCompleted:   {},
	StatusCancelled:   {StatusScheduled},
	StatusNoShow:      {StatusScheduled},
	StatusRescheduled: {StatusScheduled, StatusConfirmed},
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from s.
func AllowedTransitions(s AppointmentStatus) []AppointmentStatus {
	next := appointmentTransitions[s]
	out := make([]AppointmentStatus, len(next))
	copy(out, next)
	return out
}

var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotAvailable: {SlotBooked, SlotBlocked, SlotCancelled},
	SlotBooked:    {SlotAvailable, SlotCancelled},
}

// CanTransitionSlot reports whether a slot may move between statuses outside of the
// booking and booking-reversal operations. A booked slot only changes this way with
// override set; override also allows reopening blocked or cancelled slots.
func CanTransitionSlot(from, to SlotStatus, override bool) bool {
	if from == to || !to.Valid() {
		return false
	}
	if override {
		return true
	}
	if from == SlotBooked {
		return false
	}
	for _, allowed := range slotTransitions[from] {
		if allowed == to {
			// booking goes through BookSlot
			return to != SlotBooked
		}
	}
	return false
}

func actionFor(to AppointmentStatus) HistoryAction {
	switch to {
	case StatusConfirmed:
		return ActionConfirmed
	case StatusCancelled:
		return ActionCancelled
	case StatusRescheduled:
		return ActionRescheduled
	case StatusCompleted:
		return ActionCompleted
	case StatusNoShow:
		return ActionNoShow
	default:
		return ActionUpdated
	}
}
