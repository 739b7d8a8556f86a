package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityCancelled   AvailabilityStatus = "cancelled"
	AvailabilityBlocked     AvailabilityStatus = "blocked"
	AvailabilityMaintenance AvailabilityStatus = "maintenance"
)

type AppointmentType string

const (
	TypeConsultation           AppointmentType = "consultation"
	TypeFollowUp               AppointmentType = "follow_up"
	TypeEmergency              AppointmentType = "emergency"
	TypeTelemedicine           AppointmentType = "telemedicine"
	TypeRoutineCheckup         AppointmentType = "routine_checkup"
	TypeSpecialistConsultation AppointmentType = "specialist_consultation"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeTelemedicine,
		TypeRoutineCheckup, TypeSpecialistConsultation:
		return true
	}
	return false
}

type AppointmentMode string

const (
	ModeInPerson  AppointmentMode = "in_person"
	ModeVideoCall AppointmentMode = "video_call"
	ModeHomeVisit AppointmentMode = "home_visit"
)

func (m AppointmentMode) Valid() bool {
	switch m {
	case ModeInPerson, ModeVideoCall, ModeHomeVisit:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartial   PaymentStatus = "partial"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

type LocationType string

const (
	LocationClinic       LocationType = "clinic"
	LocationHospital     LocationType = "hospital"
	LocationTelemedicine LocationType = "telemedicine"
	LocationHomeVisit    LocationType = "home_visit"
)

// Location describes where an availability window or appointment takes place.
type Location struct {
	Type     LocationType `json:"type"`
	Address  string       `json:"address,omitempty"`
	Room     string       `json:"room,omitempty"`
	VideoURL string       `json:"video_url,omitempty"`
}

func (l Location) Validate() error {
	switch l.Type {
	case LocationClinic, LocationHospital:
		if strings.TrimSpace(l.Address) == "" {
			return fmt.Errorf("%w: %s location requires an address", ErrInvalidInput, l.Type)
		}
	case LocationTelemedicine, LocationHomeVisit:
	case "":
		return fmt.Errorf("%w: location type is required", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: invalid location type %q", ErrInvalidInput, l.Type)
	}
	return nil
}

var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true, "INR": true,
}

var maxBaseFee = decimal.NewFromInt(10000)

type Pricing struct {
	BaseFee           decimal.Decimal `json:"base_fee"`
	Currency          string          `json:"currency"`
	InsuranceAccepted bool            `json:"insurance_accepted"`
}

func (p Pricing) Validate() error {
	if p.BaseFee.IsNegative() {
		return fmt.Errorf("%w: base fee cannot be negative", ErrInvalidInput)
	}
	if p.BaseFee.GreaterThan(maxBaseFee) {
		return fmt.Errorf("%w: base fee cannot exceed %s", ErrInvalidInput, maxBaseFee)
	}
	if p.Currency != "" && !supportedCurrencies[p.Currency] {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, p.Currency)
	}
	return nil
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is a provider-declared block of local time from which slots are carved.
type AvailabilityWindow struct {
	ID                     uuid.UUID
	ProviderID             uuid.UUID
	Date                   schedule.Date
	StartTime              schedule.Clock
	EndTime                schedule.Clock
	Timezone               string
	SlotDuration           int
	BreakDuration          int
	IsRecurring            bool
	RecurrencePattern      schedule.Pattern
	RecurrenceEndDate      *schedule.Date
	MaxAppointmentsPerSlot int
	Status                 AvailabilityStatus
	AppointmentType        AppointmentType
	Location               Location
	Pricing                *Pricing
	Notes                  *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Window returns the slot generation inputs of the availability.
func (a *AvailabilityWindow) Window() schedule.Window {
	pattern := schedule.PatternNone
	if a.IsRecurring {
		pattern = a.RecurrencePattern
	}
	return schedule.Window{
		Date:          a.Date,
		Start:         a.StartTime,
		End:           a.EndTime,
		Timezone:      a.Timezone,
		SlotMinutes:   a.SlotDuration,
		BreakMinutes:  a.BreakDuration,
		Pattern:       pattern,
		RecurrenceEnd: a.RecurrenceEndDate,
	}
}

type AppointmentSlot struct {
	ID               uuid.UUID
	ProviderID       uuid.UUID
	AvailabilityID   uuid.UUID
	StartTime        time.Time
	EndTime          time.Time
	Status           SlotStatus
	AppointmentType  AppointmentType
	PatientID        *uuid.UUID
	BookingReference *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *AppointmentSlot) Interval() schedule.Interval {
	return schedule.Interval{Start: s.StartTime, End: s.EndTime}
}

func (s *AppointmentSlot) DurationMinutes() int {
	return int(s.EndTime.Sub(s.StartTime) / time.Minute)
}

type Appointment struct {
	ID                  uuid.UUID
	Number              string
	PatientID           uuid.UUID
	ProviderID          uuid.UUID
	SlotID              *uuid.UUID
	StartsAt            time.Time
	Date                schedule.Date
	Time                schedule.Clock
	DurationMinutes     int
	Timezone            string
	Mode                AppointmentMode
	Type                AppointmentType
	Status              AppointmentStatus
	PaymentStatus       PaymentStatus
	EstimatedAmount     decimal.NullDecimal
	ActualAmount        decimal.NullDecimal
	Currency            string
	ReasonForVisit      string
	Symptoms            *string
	MedicalHistoryNotes *string
	SpecialInstructions *string
	EmergencyContact    *EmergencyContact
	Location            *Location
	VideoCallLink       *string
	CreatedBy           string
	CancelledAt         *time.Time
	CancellationReason  *string
	CancelledBy         *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EndsAt is the end of the appointment's time range.
func (a *Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsUpcoming reports whether the appointment is still ahead of now and holds an active booking.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.StartsAt.After(now) && (a.Status == StatusScheduled || a.Status == StatusConfirmed)
}

func (a *Appointment) CanBeCancelled(now time.Time) bool {
	return a.IsUpcoming(now)
}

func (a *Appointment) CanBeRescheduled(now time.Time) bool {
	return a.IsUpcoming(now)
}

// placeAt sets the appointment's time fields from a slot.
func (a *Appointment) placeAt(slot *AppointmentSlot, loc *time.Location) {
	local := slot.StartTime.In(loc)
	id := slot.ID
	a.SlotID = &id
	a.StartsAt = slot.StartTime
	a.Date = schedule.DateOf(local)
	a.Time = schedule.ClockOf(local)
	a.DurationMinutes = slot.DurationMinutes()
	a.Timezone = loc.String()
}

type HistoryAction string

const (
	ActionCreated     HistoryAction = "created"
	ActionUpdated     HistoryAction = "updated"
	ActionConfirmed   HistoryAction = "confirmed"
	ActionCancelled   HistoryAction = "cancelled"
	ActionRescheduled HistoryAction = "rescheduled"
	ActionCompleted   HistoryAction = "completed"
	ActionNoShow      HistoryAction = "no_show"
)

// HistoryEntry is one immutable audit row for an appointment.
type HistoryEntry struct {
	ID             uuid.UUID
	AppointmentID  uuid.UUID
	Action         HistoryAction
	Description    string
	PreviousValues map[string]any
	NewValues      map[string]any
	PerformedBy    string
	PerformedAt    time.Time
}

// SlotFilter narrows a slot search. From and To bound the slot start time.
type SlotFilter struct {
	ProviderID      *uuid.UUID
	From            time.Time
	To              time.Time
	AppointmentType AppointmentType
	DurationMinutes int
	Status          SlotStatus
	Limit           int
}

type SlotStatistics struct {
	Total           int     `json:"total_slots"`
	Available       int     `json:"available_slots"`
	Booked          int     `json:"booked_slots"`
	Cancelled       int     `json:"cancelled_slots"`
	Blocked         int     `json:"blocked_slots"`
	UtilizationRate float64 `json:"utilization_rate"`
}
