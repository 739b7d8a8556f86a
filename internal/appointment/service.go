package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/provider-availability-booking/internal/redis"
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the source of "now" used for upcoming/past checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.log = logger }
}

// NewService builds the booking engine. A nil locker disables the Redis fast path.
func NewService(repo Repository, locker redisclient.Locker, opts ...Option) *Service {
	if locker == nil {
		locker = redisclient.NopLocker{}
	}
	s := &Service{
		repo:   repo,
		locker: locker,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAppointment retrieves an appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// GetAppointmentHistory returns the audit trail of an appointment, newest first.
func (s *Service) GetAppointmentHistory(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list appointment history: %w", err)
	}
	return history, nil
}

// GetSlot retrieves a single slot by ID
func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// SearchSlots lists slots matching f ordered by start time. It never mutates state.
func (s *Service) SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error) {
	if f.From.IsZero() || f.To.IsZero() || !f.From.Before(f.To) {
		return nil, fmt.Errorf("%w: search range must have from before to", ErrInvalidTimeRange)
	}
	if f.Status == "" {
		f.Status = SlotAvailable
	}
	if !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown slot status %q", ErrInvalidInput, f.Status)
	}
	if f.AppointmentType != "" && !f.AppointmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, f.AppointmentType)
	}
	if f.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration cannot be negative", ErrInvalidInput)
	}
	if f.Limit <= 0 {
		f.Limit = 100 // default
	}
	if f.Limit > 500 {
		f.Limit = 500 // max
	}

	slots, err := s.repo.SearchSlots(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search slots: %w", err)
	}
	return slots, nil
}

// SlotStatistics summarizes a provider's slots starting within [from, to).
func (s *Service) SlotStatistics(ctx context.Context, providerID uuid.UUID, from, to time.Time) (*SlotStatistics, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidTimeRange)
	}
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	counts, err := s.repo.CountSlotsByStatus(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count slots: %w", err)
	}

	stats := &SlotStatistics{
		Available: counts[SlotAvailable],
		Booked:    counts[SlotBooked],
		Cancelled: counts[SlotCancelled],
		Blocked:   counts[SlotBlocked],
	}
	stats.Total = stats.Available + stats.Booked + stats.Cancelled + stats.Blocked
	if stats.Total > 0 {
		stats.UtilizationRate = float64(stats.Booked) / float64(stats.Total) * 100
	}
	return stats, nil
}

// SetSlotStatus moves a slot through the slot state machine on behalf of a provider.
// Forcing a booked slot (override) also cancels the appointment holding it.
func (s *Service) SetSlotStatus(ctx context.Context, slotID uuid.UUID, to SlotStatus, actor string, override bool) (*AppointmentSlot, error) {
	if to == SlotBooked {
		return nil, fmt.Errorf("%w: slots are booked through BookSlot", ErrInvalidStatusTransition)
	}
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if !CanTransitionSlot(slot.Status, to, override) {
		return nil, fmt.Errorf("%w: slot %s -> %s", ErrInvalidStatusTransition, slot.Status, to)
	}

	var updated *AppointmentSlot
	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(ctx context.Context, tx Tx) error {
			if slot.Status != SlotBooked {
				u, err := tx.UpdateSlotStatus(ctx, slotID, slot.Status, to)
				if err != nil {
					return err
				}
				updated = u
				return nil
			}

			appt, err := tx.GetAppointmentBySlot(ctx, slotID)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("load slot appointment: %w", err)
			}
			u, err := tx.ReleaseSlot(ctx, slotID, to)
			if err != nil {
				return err
			}
			updated = u
			if appt == nil {
				return nil
			}

			if !CanTransition(appt.Status, StatusCancelled) {
				return fmt.Errorf("%w: appointment %s is %s", ErrInvalidStatusTransition, appt.Number, appt.Status)
			}
			now := s.now()
			after := *appt
			after.Status = StatusCancelled
			after.CancelledAt = &now
			after.CancelledBy = &actor
			reason := fmt.Sprintf("slot %s by provider", to)
			after.CancellationReason = &reason
			if err := tx.UpdateAppointment(ctx, &after, appt.Status); err != nil {
				return fmt.Errorf("cancel slot appointment: %w", err)
			}
			return recordChange(ctx, tx, appt, &after, ActionCancelled, "Appointment cancelled because its "+reason, actor, now)
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot is being modified", ErrSlotUnavailable)
		}
		if errors.Is(err, ErrStaleWrite) {
			return nil, fmt.Errorf("%w: slot changed concurrently", ErrInvalidStatusTransition)
		}
		return nil, err
	}

	s.log.Info().
		Str("slot_id", slotID.String()).
		Str("from", string(slot.Status)).
		Str("to", string(to)).
		Bool("override", override).
		Str("actor", actor).
		Msg("slot status changed")
	return updated, nil
}
