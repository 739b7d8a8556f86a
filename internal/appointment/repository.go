package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrProviderNotFound     = fmt.Errorf("provider %w", ErrNotFound)
	ErrPatientNotFound      = fmt.Errorf("patient %w", ErrNotFound)
	ErrAvailabilityNotFound = fmt.Errorf("availability %w", ErrNotFound)
	ErrSlotNotFound         = fmt.Errorf("slot %w", ErrNotFound)
	ErrAppointmentNotFound  = fmt.Errorf("appointment %w", ErrNotFound)

	// ErrStaleWrite means a conditional update found the row in a different state than expected.
	ErrStaleWrite = errors.New("row changed concurrently")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Read side
	SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error)
	CountSlotsByStatus(ctx context.Context, providerID uuid.UUID, from, to time.Time) (map[SlotStatus]int, error)
	ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]HistoryEntry, error)

	// WithTx runs fn in one transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx holds the writes that must commit together.
type Tx interface {
	// LockProvider serializes slot generation for one provider until the transaction ends.
	LockProvider(ctx context.Context, providerID uuid.UUID) error

	InsertAvailability(ctx context.Context, a *AvailabilityWindow) error
	DeleteAvailability(ctx context.Context, id uuid.UUID) error
	// CountClaimedSlots counts slots that are booked or referenced by an appointment in any status.
	CountClaimedSlots(ctx context.Context, availabilityID uuid.UUID) (int, error)

	// For conflict checks: intervals of non-cancelled slots starting before to and ending after from.
	ListOccupiedIntervals(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]schedule.Interval, error)
	// InsertSlot returns ErrConflictDetected when the storage overlap constraint rejects the slot.
	InsertSlot(ctx context.Context, s *AppointmentSlot) error

	// ClaimSlot flips an available slot of providerID to booked, or returns ErrSlotUnavailable.
	ClaimSlot(ctx context.Context, slotID, providerID, patientID uuid.UUID, reference string) (*AppointmentSlot, error)
	// ReleaseSlot moves a booked slot to the given status and unbinds its patient.
	ReleaseSlot(ctx context.Context, slotID uuid.UUID, to SlotStatus) (*AppointmentSlot, error)
	// UpdateSlotStatus changes a slot's status only if it is currently from.
	UpdateSlotStatus(ctx context.Context, slotID uuid.UUID, from, to SlotStatus) (*AppointmentSlot, error)

	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentBySlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error)
	// InsertAppointment returns ErrDuplicateNumber if the appointment number is taken and
	// ErrSlotUnavailable if another active appointment already links the slot.
	InsertAppointment(ctx context.Context, a *Appointment) error
	// UpdateAppointment writes a only if its stored status is still expected.
	UpdateAppointment(ctx context.Context, a *Appointment, expected AppointmentStatus) error

	InsertHistory(ctx context.Context, h *HistoryEntry) error
}
