package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
	redisclient "github.com/hackgods/provider-availability-booking/internal/redis"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

type seedOptions struct {
	Providers int
	Patients  int
	Weeks     int
	Seed      uint64
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Europe/London",
	"Asia/Kolkata",
}

var visitTypes = []appointment.AppointmentType{
	appointment.TypeConsultation,
	appointment.TypeFollowUp,
	appointment.TypeRoutineCheckup,
}

func seed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, opts seedOptions) error {
	faker := gofakeit.New(opts.Seed)
	repo := appointment.NewPgRepository(pool)
	svc := appointment.NewService(repo, redisclient.NopLocker{}, appointment.WithLogger(logger))

	logger.Info().Int("count", opts.Providers).Msg("seeding providers")
	providers := make([]*appointment.Provider, 0, opts.Providers)
	for i := 0; i < opts.Providers; i++ {
		spec := faker.RandomString(specialties)
		p := &appointment.Provider{
			ID:        uuid.New(),
			Name:      "Dr. " + faker.LastName(),
			Specialty: &spec,
			Timezone:  faker.RandomString(timezones),
		}
		if err := repo.CreateProvider(ctx, p); err != nil {
			return fmt.Errorf("create provider: %w", err)
		}
		providers = append(providers, p)
	}

	logger.Info().Int("count", opts.Patients).Msg("seeding patients")
	for i := 0; i < opts.Patients; i++ {
		email := faker.Email()
		p := &appointment.Patient{ID: uuid.New(), Name: faker.Name(), Email: &email}
		if err := repo.CreatePatient(ctx, p); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
	}

	if opts.Weeks <= 0 {
		logger.Info().Msg("seed complete")
		return nil
	}

	slots := 0
	for _, p := range providers {
		res, err := svc.CreateAvailability(ctx, p.ID, weeklyClinic(faker, p, opts.Weeks))
		if err != nil {
			return fmt.Errorf("availability for %s: %w", p.ID, err)
		}
		slots += res.SlotsCreated
	}

	logger.Info().Int("providers", len(providers)).Int("slots", slots).Msg("seed complete")
	return nil
}

// weeklyClinic builds a recurring morning clinic starting tomorrow in the provider's zone.
func weeklyClinic(faker *gofakeit.Faker, p *appointment.Provider, weeks int) appointment.AvailabilityInput {
	loc, err := schedule.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	first := schedule.NewDate(now.Year(), now.Month(), now.Day()).AddDays(1)
	until := first.AddDays(7*weeks - 1)
	startHour := faker.Number(8, 10)

	return appointment.AvailabilityInput{
		Date:              first,
		StartTime:         schedule.NewClock(startHour, 0),
		EndTime:           schedule.NewClock(startHour+3, 0),
		Timezone:          p.Timezone,
		SlotDuration:      faker.RandomInt([]int{15, 20, 30}),
		BreakDuration:     faker.RandomInt([]int{0, 5, 10}),
		IsRecurring:       true,
		RecurrencePattern: schedule.PatternWeekly,
		RecurrenceEndDate: &until,
		AppointmentType:   visitTypes[faker.Number(0, len(visitTypes)-1)],
		Location: appointment.Location{
			Type:    appointment.LocationClinic,
			Address: faker.Street() + ", " + faker.City(),
		},
		Pricing: &appointment.Pricing{
			BaseFee:  decimal.NewFromInt(int64(faker.Number(60, 250))),
			Currency: "USD",
		},
	}
}
