package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	redisclient "github.com/hackgods/provider-availability-booking/internal/redis"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

const maxNotesLength = 500

// AvailabilityInput is what a provider submits to publish availability.
type AvailabilityInput struct {
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
	AppointmentType        AppointmentType
	Location               Location
	Pricing                *Pricing
	Notes                  *string
}

type DateRange struct {
	Start schedule.Date `json:"start"`
	End   schedule.Date `json:"end"`
}

// AvailabilityResult reports how many of the generated candidates became slots.
// Conflicts lists the candidates that overlapped existing slots and were skipped.
type AvailabilityResult struct {
	Availability *AvailabilityWindow
	SlotsCreated int
	Candidates   int
	Conflicts    []schedule.Candidate
	DateRange    DateRange
}

// Partial reports whether some candidates were rejected by conflict detection.
func (r *AvailabilityResult) Partial() bool {
	return len(r.Conflicts) > 0
}

func (in AvailabilityInput) build(providerID uuid.UUID) (*AvailabilityWindow, error) {
	a := &AvailabilityWindow{
		ID:                     uuid.New(),
		ProviderID:             providerID,
		Date:                   in.Date,
		StartTime:              in.StartTime,
		EndTime:                in.EndTime,
		Timezone:               in.Timezone,
		SlotDuration:           in.SlotDuration,
		BreakDuration:          in.BreakDuration,
		IsRecurring:            in.IsRecurring,
		MaxAppointmentsPerSlot: in.MaxAppointmentsPerSlot,
		Status:                 AvailabilityAvailable,
		AppointmentType:        in.AppointmentType,
		Location:               in.Location,
		Pricing:                in.Pricing,
		Notes:                  in.Notes,
	}
	if a.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if a.SlotDuration == 0 {
		a.SlotDuration = 30
	}
	if a.MaxAppointmentsPerSlot == 0 {
		a.MaxAppointmentsPerSlot = 1
	}
	if a.MaxAppointmentsPerSlot < 0 {
		return nil, fmt.Errorf("%w: max appointments per slot must be positive", ErrInvalidInput)
	}
	if a.AppointmentType == "" {
		a.AppointmentType = TypeConsultation
	}
	if !a.AppointmentType.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, a.AppointmentType)
	}

	if in.IsRecurring {
		if in.RecurrencePattern == "" || in.RecurrencePattern == schedule.PatternNone {
			return nil, fmt.Errorf("%w: recurrence pattern is required for recurring availability", ErrInvalidRecurrence)
		}
		a.RecurrencePattern = in.RecurrencePattern
		a.RecurrenceEndDate = in.RecurrenceEndDate
	} else {
		a.RecurrencePattern = schedule.PatternNone
	}

	if err := a.Location.Validate(); err != nil {
		return nil, err
	}
	if a.Pricing != nil {
		if err := a.Pricing.Validate(); err != nil {
			return nil, err
		}
	}
	if a.Notes != nil && len(*a.Notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes cannot exceed %d characters", ErrInvalidInput, maxNotesLength)
	}
	return a, nil
}

// CreateAvailability validates and stores an availability window and expands it into slots.
// Validation failures reject the whole request before anything is written. Slots that
// overlap existing ones for the provider are skipped and reported in Conflicts.
func (s *Service) CreateAvailability(ctx context.Context, providerID uuid.UUID, in AvailabilityInput) (*AvailabilityResult, error) {
	avail, err := in.build(providerID)
	if err != nil {
		return nil, err
	}

	candidates, err := schedule.GenerateCandidates(avail.Window())
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	result := &AvailabilityResult{
		Availability: avail,
		Candidates:   len(candidates),
		DateRange: DateRange{
			Start: candidates[0].Date,
			End:   candidates[len(candidates)-1].Date,
		},
	}

	err = s.locker.WithProviderLock(ctx, providerID, func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(ctx context.Context, tx Tx) error {
			created, conflicts, err := s.persistSlots(ctx, tx, avail, candidates)
			if err != nil {
				return err
			}
			result.SlotsCreated = created
			result.Conflicts = conflicts
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot generation already running for provider %s", ErrConflictDetected, providerID)
		}
		return nil, fmt.Errorf("create availability: %w", err)
	}

	ev := s.log.Info()
	if result.Partial() {
		ev = s.log.Warn()
	}
	ev.Str("provider_id", providerID.String()).
		Str("availability_id", avail.ID.String()).
		Int("candidates", result.Candidates).
		Int("slots_created", result.SlotsCreated).
		Int("conflicts", len(result.Conflicts)).
		Msg("availability expanded")

	return result, nil
}

func (s *Service) persistSlots(ctx context.Context, tx Tx, avail *AvailabilityWindow, candidates []schedule.Candidate) (int, []schedule.Candidate, error) {
	if err := tx.LockProvider(ctx, avail.ProviderID); err != nil {
		return 0, nil, fmt.Errorf("lock provider: %w", err)
	}
	if err := tx.InsertAvailability(ctx, avail); err != nil {
		return 0, nil, fmt.Errorf("insert availability: %w", err)
	}

	span, _ := schedule.Span(candidates)
	existing, err := tx.ListOccupiedIntervals(ctx, avail.ProviderID, span.Start, span.End)
	if err != nil {
		return 0, nil, fmt.Errorf("list occupied slots: %w", err)
	}

	accepted, rejected := schedule.DetectConflicts(existing, candidates)
	created := 0
	for _, c := range accepted {
		slot := &AppointmentSlot{
			ID:              uuid.New(),
			ProviderID:      avail.ProviderID,
			AvailabilityID:  avail.ID,
			StartTime:       c.Start,
			EndTime:         c.End,
			Status:          SlotAvailable,
			AppointmentType: avail.AppointmentType,
		}
		if err := tx.InsertSlot(ctx, slot); err != nil {
			if errors.Is(err, ErrConflictDetected) {
				rejected = append(rejected, c)
				continue
			}
			return 0, nil, fmt.Errorf("insert slot: %w", err)
		}
		if c.Resolution != schedule.Exact {
			s.log.Debug().
				Str("slot_id", slot.ID.String()).
				Str("date", c.Date.String()).
				Str("local_start", c.LocalStart.String()).
				Str("resolution", c.Resolution.String()).
				Msg("slot start adjusted for DST transition")
		}
		created++
	}

	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Start.Before(rejected[j].Start) })
	return created, rejected, nil
}

// DeleteAvailability removes a window and its slots. It is refused while any slot is booked
// or still referenced by an appointment, cancelled ones included, so history keeps its slot.
func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	avail, err := s.repo.GetAvailabilityByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockProvider(ctx, avail.ProviderID); err != nil {
			return fmt.Errorf("lock provider: %w", err)
		}
		claimed, err := tx.CountClaimedSlots(ctx, id)
		if err != nil {
			return fmt.Errorf("count claimed slots: %w", err)
		}
		if claimed > 0 {
			return fmt.Errorf("%w: %d slot(s) booked or referenced by appointments", ErrAvailabilityHasBookings, claimed)
		}
		return tx.DeleteAvailability(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("availability_id", id.String()).
		Str("provider_id", avail.ProviderID.String()).
		Msg("availability deleted")
	return nil
}

// GetAvailability retrieves an availability window by ID
func (s *Service) GetAvailability(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	avail, err := s.repo.GetAvailabilityByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return avail, nil
}
