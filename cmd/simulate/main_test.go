package main

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-availability-booking/internal/config"
)

func TestLoadConfigNormalizesRatios(t *testing.T) {
	t.Setenv("SIM_BOOKING_RATIO", "2")
	t.Setenv("SIM_CANCEL_RATIO", "1")
	t.Setenv("SIM_READ_RATIO", "1")
	t.Setenv("SIM_API_BASE_URL", "")

	cfg := loadConfig(config.Config{HTTPPort: "8081", PostgresDSN: "postgres://sim"})

	if math.Abs(cfg.BookingRatio-0.5) > 1e-9 || math.Abs(cfg.CancelRatio-0.25) > 1e-9 || math.Abs(cfg.ReadRatio-0.25) > 1e-9 {
		t.Errorf("ratios %.2f/%.2f/%.2f", cfg.BookingRatio, cfg.CancelRatio, cfg.ReadRatio)
	}
	if cfg.APIBaseURL != "http://localhost:8081" {
		t.Errorf("api base url %q", cfg.APIBaseURL)
	}
	if cfg.PostgresDSN != "postgres://sim" {
		t.Errorf("dsn %q", cfg.PostgresDSN)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := SimConfig{Workers: 4, Duration: time.Second, HotSlots: 2}
	if err := validateConfig(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SimConfig)
	}{
		{"no workers", func(c *SimConfig) { c.Workers = 0 }},
		{"no duration", func(c *SimConfig) { c.Duration = 0 }},
		{"negative hot slots", func(c *SimConfig) { c.HotSlots = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 50); got != 6 {
		t.Errorf("p50 = %d", got)
	}
	if got := percentile(sorted, 99); got != 10 {
		t.Errorf("p99 = %d", got)
	}
	if got := percentile(sorted, 100); got != 10 {
		t.Errorf("p100 = %d", got)
	}
}

func TestTakeAppointmentHandsOutEachOnce(t *testing.T) {
	dp := &DataPool{}
	want := map[uuid.UUID]bool{}
	for i := 0; i < 20; i++ {
		id := uuid.New()
		want[id] = true
		dp.AddAppointment(id)
	}

	rng := rand.New(rand.NewSource(1))
	seen := map[uuid.UUID]bool{}
	for {
		id, ok := dp.TakeAppointment(rng)
		if !ok {
			break
		}
		if seen[id] {
			t.Fatalf("appointment %s handed out twice", id)
		}
		seen[id] = true
	}
	if len(seen) != len(want) {
		t.Fatalf("took %d of %d appointments", len(seen), len(want))
	}
}
