package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
)

// BookingService is the part of appointment.Service the HTTP layer needs.
type BookingService interface {
	CreateAvailability(ctx context.Context, providerID uuid.UUID, in appointment.AvailabilityInput) (*appointment.AvailabilityResult, error)
	GetAvailability(ctx context.Context, id uuid.UUID) (*appointment.AvailabilityWindow, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error

	SearchSlots(ctx context.Context, f appointment.SlotFilter) ([]appointment.AppointmentSlot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*appointment.AppointmentSlot, error)
	SetSlotStatus(ctx context.Context, slotID uuid.UUID, to appointment.SlotStatus, actor string, override bool) (*appointment.AppointmentSlot, error)
	SlotStatistics(ctx context.Context, providerID uuid.UUID, from, to time.Time) (*appointment.SlotStatistics, error)

	BookSlot(ctx context.Context, slotID, patientID uuid.UUID, req appointment.BookingRequest, actor string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to appointment.AppointmentStatus, actor, note string) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason, actor string) (*appointment.Appointment, error)
	RescheduleAppointment(ctx context.Context, id, newSlotID uuid.UUID, reason, actor string) (*appointment.Appointment, error)
	GetAppointmentHistory(ctx context.Context, id uuid.UUID) ([]appointment.HistoryEntry, error)
}

type RouterConfig struct {
	Service        BookingService
	Postgres       Pinger
	Redis          Pinger
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(ActorMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	// Provider availability
	r.Post("/providers/{providerID}/availability", createAvailabilityHandler(svc))
	r.Get("/providers/{providerID}/slot-stats", slotStatisticsHandler(svc))
	r.Get("/availability/{id}", getAvailabilityHandler(svc))
	r.Delete("/availability/{id}", deleteAvailabilityHandler(svc))

	// Slots
	r.Get("/slots", searchSlotsHandler(svc))
	r.Get("/slots/{id}", getSlotHandler(svc))
	r.Patch("/slots/{id}/status", updateSlotStatusHandler(svc))
	r.Post("/slots/{id}/book", bookSlotHandler(svc))

	// Appointments
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Patch("/appointments/{id}/status", updateAppointmentStatusHandler(svc))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(svc))
	r.Get("/appointments/{id}/history", appointmentHistoryHandler(svc))

	return r
}
