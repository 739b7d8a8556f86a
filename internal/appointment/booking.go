package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	redisclient "github.com/hackgods/provider-availability-booking/internal/redis"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

const (
	maxReasonLength       = 1000
	maxSymptomsLength     = 1000
	maxHistoryNotesLength = 2000
	maxInstructionsLength = 500
	maxNumberAttempts     = 5
)

// BookingRequest carries the patient-supplied fields of a new appointment.
type BookingRequest struct {
	// ProviderID, when set, must match the provider owning the slot.
	ProviderID          *uuid.UUID
	Mode                AppointmentMode
	Type                AppointmentType
	ReasonForVisit      string
	Symptoms            *string
	MedicalHistoryNotes *string
	SpecialInstructions *string
	EmergencyContact    *EmergencyContact
	Location            *Location
	VideoCallLink       *string
	EstimatedAmount     decimal.NullDecimal
	Currency            string
	CreatedBy           string
}

func (r *BookingRequest) validate() error {
	if r.Mode == "" {
		r.Mode = ModeInPerson
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown appointment mode %q", ErrInvalidInput, r.Mode)
	}
	if r.Type != "" && !r.Type.Valid() {
		return fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, r.Type)
	}
	if strings.TrimSpace(r.ReasonForVisit) == "" {
		return fmt.Errorf("%w: reason for visit is required", ErrInvalidInput)
	}
	if err := maxLen("reason for visit", &r.ReasonForVisit, maxReasonLength); err != nil {
		return err
	}
	if err := maxLen("symptoms", r.Symptoms, maxSymptomsLength); err != nil {
		return err
	}
	if err := maxLen("medical history notes", r.MedicalHistoryNotes, maxHistoryNotesLength); err != nil {
		return err
	}
	if err := maxLen("special instructions", r.SpecialInstructions, maxInstructionsLength); err != nil {
		return err
	}
	if r.Mode == ModeVideoCall && (r.VideoCallLink == nil || *r.VideoCallLink == "") {
		return fmt.Errorf("%w: video call link is required for video call appointments", ErrInvalidInput)
	}
	if r.EstimatedAmount.Valid && r.EstimatedAmount.Decimal.IsNegative() {
		return fmt.Errorf("%w: estimated amount cannot be negative", ErrInvalidInput)
	}
	if r.Currency != "" && !supportedCurrencies[r.Currency] {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, r.Currency)
	}
	if r.Location != nil {
		if err := r.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func maxLen(field string, v *string, n int) error {
	if v != nil && len(*v) > n {
		return fmt.Errorf("%w: %s cannot exceed %d characters", ErrInvalidInput, field, n)
	}
	return nil
}

// BookSlot claims an available slot for a patient and creates a scheduled appointment.
// The status check, the flip to booked, the appointment insert and its audit row commit
// together; a concurrent loser gets ErrSlotUnavailable.
func (s *Service) BookSlot(ctx context.Context, slotID, patientID uuid.UUID, req BookingRequest, actor string) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.Status != SlotAvailable {
		return nil, fmt.Errorf("%w: slot is %s", ErrSlotUnavailable, slot.Status)
	}
	if req.ProviderID != nil && *req.ProviderID != slot.ProviderID {
		return nil, fmt.Errorf("%w: slot belongs to another provider", ErrSlotUnavailable)
	}
	now := s.now()
	if !slot.StartTime.After(now) {
		return nil, fmt.Errorf("%w: slot has already started", ErrSlotUnavailable)
	}

	avail, err := s.repo.GetAvailabilityByID(ctx, slot.AvailabilityID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	loc, err := schedule.LoadLocation(avail.Timezone)
	if err != nil {
		return nil, err
	}

	appt := newAppointment(patientID, slot, avail, req, actor, now)
	if appt.Mode == ModeInPerson && appt.Location == nil {
		return nil, fmt.Errorf("%w: location details are required for in-person appointments", ErrInvalidInput)
	}

	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(ctx context.Context, tx Tx) error {
			claimed, err := tx.ClaimSlot(ctx, slotID, slot.ProviderID, patientID, newBookingReference())
			if err != nil {
				return err
			}
			appt.placeAt(claimed, loc)

			if err := insertAppointment(ctx, tx, appt, now); err != nil {
				return err
			}
			return recordCreated(ctx, tx, appt, actor, now)
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot is currently being booked", ErrSlotUnavailable)
		}
		if errors.Is(err, ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("book slot: %w", err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("appointment_number", appt.Number).
		Str("slot_id", slotID.String()).
		Str("patient_id", patientID.String()).
		Str("actor", actor).
		Msg("slot booked")

	return appt, nil
}

func newAppointment(patientID uuid.UUID, slot *AppointmentSlot, avail *AvailabilityWindow, req BookingRequest, actor string, now time.Time) *Appointment {
	a := &Appointment{
		ID:                  uuid.New(),
		PatientID:           patientID,
		ProviderID:          slot.ProviderID,
		Mode:                req.Mode,
		Type:                req.Type,
		Status:              StatusScheduled,
		PaymentStatus:       PaymentPending,
		EstimatedAmount:     req.EstimatedAmount,
		Currency:            req.Currency,
		ReasonForVisit:      req.ReasonForVisit,
		Symptoms:            req.Symptoms,
		MedicalHistoryNotes: req.MedicalHistoryNotes,
		SpecialInstructions: req.SpecialInstructions,
		EmergencyContact:    req.EmergencyContact,
		Location:            req.Location,
		VideoCallLink:       req.VideoCallLink,
		CreatedBy:           req.CreatedBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if a.Type == "" {
		a.Type = slot.AppointmentType
	}
	if a.CreatedBy == "" {
		a.CreatedBy = actor
	}
	if a.Location == nil && a.Mode != ModeVideoCall {
		loc := avail.Location
		a.Location = &loc
	}
	if avail.Pricing != nil {
		if !a.EstimatedAmount.Valid {
			a.EstimatedAmount = decimal.NewNullDecimal(avail.Pricing.BaseFee)
		}
		if a.Currency == "" {
			a.Currency = avail.Pricing.Currency
		}
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	return a
}

func insertAppointment(ctx context.Context, tx Tx, a *Appointment, now time.Time) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		a.Number = newAppointmentNumber(now)
		err := tx.InsertAppointment(ctx, a)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return err
		}
	}
	return fmt.Errorf("insert appointment: %w after %d attempts", ErrDuplicateNumber, maxNumberAttempts)
}

// UpdateAppointmentStatus applies one transition of the appointment state machine.
// Entering cancelled gives the slot back; leaving cancelled re-claims it.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus, actor, note string) (*Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, to)
	}

	var updated *Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, to) {
			return fmt.Errorf("%w: %s -> %s (allowed: %v)", ErrInvalidStatusTransition, current.Status, to, AllowedTransitions(current.Status))
		}

		now := s.now()
		after := *current
		after.Status = to
		after.UpdatedAt = now

		switch {
		case !to.HoldsSlot():
			release := SlotAvailable
			if !current.StartsAt.After(now) {
				release = SlotCancelled
			}
			if current.SlotID != nil {
				if _, err := tx.ReleaseSlot(ctx, *current.SlotID, release); err != nil {
					return fmt.Errorf("release slot: %w", err)
				}
			}
			after.CancelledAt = &now
			after.CancelledBy = &actor
			if note != "" {
				after.CancellationReason = &note
			}
		case !current.Status.HoldsSlot():
			if !current.StartsAt.After(now) {
				return fmt.Errorf("%w: appointment time has passed", ErrInvalidStatusTransition)
			}
			if current.SlotID != nil {
				if _, err := tx.ClaimSlot(ctx, *current.SlotID, current.ProviderID, current.PatientID, newBookingReference()); err != nil {
					return err
				}
			}
			after.CancelledAt = nil
			after.CancelledBy = nil
			after.CancellationReason = nil
		}

		if err := tx.UpdateAppointment(ctx, &after, current.Status); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		description := note
		if description == "" {
			description = fmt.Sprintf("Status changed from %s to %s", current.Status, to)
		}
		if err := recordChange(ctx, tx, current, &after, actionFor(to), description, actor, now); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("status", string(to)).
		Str("actor", actor).
		Msg("appointment status changed")
	return updated, nil
}

// CancelAppointment cancels an upcoming scheduled or confirmed appointment and returns its
// slot to available in the same transaction.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason, actor string) (*Appointment, error) {
	var updated *Appointment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if !current.CanBeCancelled(now) {
			return fmt.Errorf("%w: status %s, starts at %s", ErrNotCancellable, current.Status, current.StartsAt.Format(time.RFC3339))
		}

		after := *current
		after.Status = StatusCancelled
		after.UpdatedAt = now
		after.CancelledAt = &now
		after.CancelledBy = &actor
		if reason != "" {
			after.CancellationReason = &reason
		}

		if current.SlotID != nil {
			if _, err := tx.ReleaseSlot(ctx, *current.SlotID, SlotAvailable); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		if err := tx.UpdateAppointment(ctx, &after, current.Status); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		description := "Appointment cancelled"
		if reason != "" {
			description += ": " + reason
		}
		if err := recordChange(ctx, tx, current, &after, ActionCancelled, description, actor, now); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("actor", actor).
		Msg("appointment cancelled")
	return updated, nil
}

// RescheduleAppointment moves an upcoming appointment onto another available slot of the
// same provider. The new slot is claimed and the old one released in one transaction.
func (s *Service) RescheduleAppointment(ctx context.Context, id, newSlotID uuid.UUID, reason, actor string) (*Appointment, error) {
	newSlot, err := s.repo.GetSlotByID(ctx, newSlotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	avail, err := s.repo.GetAvailabilityByID(ctx, newSlot.AvailabilityID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	loc, err := schedule.LoadLocation(avail.Timezone)
	if err != nil {
		return nil, err
	}
	if !newSlot.StartTime.After(s.now()) {
		return nil, fmt.Errorf("%w: slot has already started", ErrSlotUnavailable)
	}

	var updated *Appointment
	err = s.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(ctx context.Context, tx Tx) error {
			current, err := tx.GetAppointmentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			now := s.now()
			if !current.CanBeRescheduled(now) {
				return fmt.Errorf("%w: status %s, starts at %s", ErrNotReschedulable, current.Status, current.StartsAt.Format(time.RFC3339))
			}
			if current.SlotID != nil && *current.SlotID == newSlotID {
				return fmt.Errorf("%w: appointment already holds this slot", ErrInvalidInput)
			}
			if newSlot.ProviderID != current.ProviderID {
				return fmt.Errorf("%w: slot belongs to another provider", ErrSlotUnavailable)
			}

			claimed, err := tx.ClaimSlot(ctx, newSlotID, current.ProviderID, current.PatientID, newBookingReference())
			if err != nil {
				return err
			}
			if current.SlotID != nil {
				if _, err := tx.ReleaseSlot(ctx, *current.SlotID, SlotAvailable); err != nil {
					return fmt.Errorf("release slot: %w", err)
				}
			}

			after := *current
			after.placeAt(claimed, loc)
			after.Status = StatusRescheduled
			after.UpdatedAt = now
			if err := tx.UpdateAppointment(ctx, &after, current.Status); err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}

			description := "Appointment rescheduled"
			if reason != "" {
				description += ": " + reason
			}
			if err := recordChange(ctx, tx, current, &after, ActionRescheduled, description, actor, now); err != nil {
				return fmt.Errorf("record history: %w", err)
			}
			updated = &after
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot is currently being booked", ErrSlotUnavailable)
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("slot_id", newSlotID.String()).
		Str("actor", actor).
		Msg("appointment rescheduled")
	return updated, nil
}
