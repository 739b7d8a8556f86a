package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

type CreateAvailabilityRequest struct {
	Date                   string               `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime              string               `json:"start_time" validate:"required"`
	EndTime                string               `json:"end_time" validate:"required"`
	Timezone               string               `json:"timezone" validate:"required"`
	SlotDuration           int                  `json:"slot_duration" validate:"gte=0"`
	BreakDuration          int                  `json:"break_duration" validate:"gte=0"`
	IsRecurring            bool                 `json:"is_recurring"`
	RecurrencePattern      string               `json:"recurrence_pattern" validate:"omitempty,oneof=none daily weekly monthly"`
	RecurrenceEndDate      *string              `json:"recurrence_end_date" validate:"omitempty,datetime=2006-01-02"`
	MaxAppointmentsPerSlot int                  `json:"max_appointments_per_slot" validate:"gte=0"`
	AppointmentType        string               `json:"appointment_type"`
	Location               appointment.Location `json:"location"`
	Pricing                *appointment.Pricing `json:"pricing"`
	Notes                  *string              `json:"notes" validate:"omitempty,max=500"`
}

type BookSlotRequest struct {
	PatientID           string                        `json:"patient_id" validate:"required,uuid"`
	ProviderID          *string                       `json:"provider_id" validate:"omitempty,uuid"`
	Mode                string                        `json:"appointment_mode" validate:"omitempty,oneof=in_person video_call home_visit"`
	AppointmentType     string                        `json:"appointment_type"`
	ReasonForVisit      string                        `json:"reason_for_visit" validate:"required,max=1000"`
	Symptoms            *string                       `json:"symptoms" validate:"omitempty,max=1000"`
	MedicalHistoryNotes *string                       `json:"medical_history_notes" validate:"omitempty,max=2000"`
	SpecialInstructions *string                       `json:"special_instructions" validate:"omitempty,max=500"`
	EmergencyContact    *appointment.EmergencyContact `json:"emergency_contact"`
	Location            *appointment.Location         `json:"location_details"`
	VideoCallLink       *string                       `json:"video_call_link" validate:"omitempty,url"`
	EstimatedAmount     *decimal.Decimal              `json:"estimated_amount"`
	Currency            string                        `json:"currency" validate:"omitempty,len=3"`
}

type UpdateSlotStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=available cancelled blocked booked"`
	Override bool   `json:"override"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RescheduleAppointmentRequest struct {
	SlotID string `json:"slot_id" validate:"required,uuid"`
	Reason string `json:"reason" validate:"max=500"`
}

type AvailabilityResponse struct {
	ID                     uuid.UUID            `json:"id"`
	ProviderID             uuid.UUID            `json:"provider_id"`
	Date                   schedule.Date        `json:"date"`
	StartTime              schedule.Clock       `json:"start_time"`
	EndTime                schedule.Clock       `json:"end_time"`
	Timezone               string               `json:"timezone"`
	SlotDuration           int                  `json:"slot_duration"`
	BreakDuration          int                  `json:"break_duration"`
	IsRecurring            bool                 `json:"is_recurring"`
	RecurrencePattern      string               `json:"recurrence_pattern"`
	RecurrenceEndDate      *schedule.Date       `json:"recurrence_end_date,omitempty"`
	MaxAppointmentsPerSlot int                  `json:"max_appointments_per_slot"`
	Status                 string               `json:"status"`
	AppointmentType        string               `json:"appointment_type"`
	Location               appointment.Location `json:"location"`
	Pricing                *appointment.Pricing `json:"pricing,omitempty"`
	Notes                  *string              `json:"notes,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
}

type ConflictResponse struct {
	Date       schedule.Date  `json:"date"`
	LocalStart schedule.Clock `json:"local_start"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
}

type CreateAvailabilityResponse struct {
	Availability     AvailabilityResponse  `json:"availability"`
	SlotsCreated     int                   `json:"slots_created"`
	CandidateSlots   int                   `json:"candidate_slots"`
	Conflicts        []ConflictResponse    `json:"conflicts"`
	DateRange        appointment.DateRange `json:"date_range"`
	PartiallyCreated bool                  `json:"partially_created"`
}

type SlotResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProviderID       uuid.UUID  `json:"provider_id"`
	AvailabilityID   uuid.UUID  `json:"availability_id"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	DurationMinutes  int        `json:"duration_minutes"`
	Status           string     `json:"status"`
	AppointmentType  string     `json:"appointment_type"`
	PatientID        *uuid.UUID `json:"patient_id,omitempty"`
	BookingReference *string    `json:"booking_reference,omitempty"`
}

type SlotListResponse struct {
	Slots []SlotResponse `json:"slots"`
	Count int            `json:"count"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID                     `json:"id"`
	Number             string                        `json:"appointment_number"`
	PatientID          uuid.UUID                     `json:"patient_id"`
	ProviderID         uuid.UUID                     `json:"provider_id"`
	SlotID             *uuid.UUID                    `json:"slot_id,omitempty"`
	StartsAt           time.Time                     `json:"starts_at"`
	EndsAt             time.Time                     `json:"ends_at"`
	Date               schedule.Date                 `json:"appointment_date"`
	Time               schedule.Clock                `json:"appointment_time"`
	DurationMinutes    int                           `json:"duration_minutes"`
	Timezone           string                        `json:"timezone"`
	Mode               string                        `json:"appointment_mode"`
	Type               string                        `json:"appointment_type"`
	Status             string                        `json:"status"`
	PaymentStatus      string                        `json:"payment_status"`
	EstimatedAmount    decimal.NullDecimal           `json:"estimated_amount"`
	ActualAmount       decimal.NullDecimal           `json:"actual_amount"`
	Currency           string                        `json:"currency"`
	ReasonForVisit     string                        `json:"reason_for_visit"`
	EmergencyContact   *appointment.EmergencyContact `json:"emergency_contact,omitempty"`
	Location           *appointment.Location         `json:"location_details,omitempty"`
	VideoCallLink      *string                       `json:"video_call_link,omitempty"`
	CancelledAt        *time.Time                    `json:"cancelled_at,omitempty"`
	CancellationReason *string                       `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

type HistoryEntryResponse struct {
	ID             uuid.UUID      `json:"id"`
	Action         string         `json:"action"`
	Description    string         `json:"description"`
	PreviousValues map[string]any `json:"previous_values"`
	NewValues      map[string]any `json:"new_values"`
	PerformedBy    string         `json:"performed_by"`
	PerformedAt    time.Time      `json:"performed_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAvailabilityResponse(a *appointment.AvailabilityWindow) AvailabilityResponse {
	return AvailabilityResponse{
		ID:                     a.ID,
		ProviderID:             a.ProviderID,
		Date:                   a.Date,
		StartTime:              a.StartTime,
		EndTime:                a.EndTime,
		Timezone:               a.Timezone,
		SlotDuration:           a.SlotDuration,
		BreakDuration:          a.BreakDuration,
		IsRecurring:            a.IsRecurring,
		RecurrencePattern:      string(a.RecurrencePattern),
		RecurrenceEndDate:      a.RecurrenceEndDate,
		MaxAppointmentsPerSlot: a.MaxAppointmentsPerSlot,
		Status:                 string(a.Status),
		AppointmentType:        string(a.AppointmentType),
		Location:               a.Location,
		Pricing:                a.Pricing,
		Notes:                  a.Notes,
		CreatedAt:              a.CreatedAt,
	}
}

func toSlotResponse(s *appointment.AppointmentSlot) SlotResponse {
	return SlotResponse{
		ID:               s.ID,
		ProviderID:       s.ProviderID,
		AvailabilityID:   s.AvailabilityID,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		DurationMinutes:  s.DurationMinutes(),
		Status:           string(s.Status),
		AppointmentType:  string(s.AppointmentType),
		PatientID:        s.PatientID,
		BookingReference: s.BookingReference,
	}
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		Number:             a.Number,
		PatientID:          a.PatientID,
		ProviderID:         a.ProviderID,
		SlotID:             a.SlotID,
		StartsAt:           a.StartsAt,
		EndsAt:             a.EndsAt(),
		Date:               a.Date,
		Time:               a.Time,
		DurationMinutes:    a.DurationMinutes,
		Timezone:           a.Timezone,
		Mode:               string(a.Mode),
		Type:               string(a.Type),
		Status:             string(a.Status),
		PaymentStatus:      string(a.PaymentStatus),
		EstimatedAmount:    a.EstimatedAmount,
		ActualAmount:       a.ActualAmount,
		Currency:           a.Currency,
		ReasonForVisit:     a.ReasonForVisit,
		EmergencyContact:   a.EmergencyContact,
		Location:           a.Location,
		VideoCallLink:      a.VideoCallLink,
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toHistoryResponse(h appointment.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:             h.ID,
		Action:         string(h.Action),
		Description:    h.Description,
		PreviousValues: h.PreviousValues,
		NewValues:      h.NewValues,
		PerformedBy:    h.PerformedBy,
		PerformedAt:    h.PerformedAt,
	}
}
