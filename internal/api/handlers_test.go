package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

// stubService answers from canned values and records the last call's arguments.
type stubService struct {
	err error

	gotProviderID uuid.UUID
	gotInput      appointment.AvailabilityInput
	gotFilter     appointment.SlotFilter
	gotBooking    appointment.BookingRequest
	gotActor      string
	gotStatus     string
	gotOverride   bool
	gotFrom       time.Time
	gotTo         time.Time

	result  *appointment.AvailabilityResult
	slot    *appointment.AppointmentSlot
	slots   []appointment.AppointmentSlot
	appt    *appointment.Appointment
	history []appointment.HistoryEntry
}

func (s *stubService) CreateAvailability(_ context.Context, providerID uuid.UUID, in appointment.AvailabilityInput) (*appointment.AvailabilityResult, error) {
	s.gotProviderID, s.gotInput = providerID, in
	return s.result, s.err
}

func (s *stubService) GetAvailability(context.Context, uuid.UUID) (*appointment.AvailabilityWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result.Availability, nil
}

func (s *stubService) DeleteAvailability(context.Context, uuid.UUID) error { return s.err }

func (s *stubService) SearchSlots(_ context.Context, f appointment.SlotFilter) ([]appointment.AppointmentSlot, error) {
	s.gotFilter = f
	return s.slots, s.err
}

func (s *stubService) GetSlot(context.Context, uuid.UUID) (*appointment.AppointmentSlot, error) {
	return s.slot, s.err
}

func (s *stubService) SetSlotStatus(_ context.Context, _ uuid.UUID, to appointment.SlotStatus, actor string, override bool) (*appointment.AppointmentSlot, error) {
	s.gotStatus, s.gotActor, s.gotOverride = string(to), actor, override
	return s.slot, s.err
}

func (s *stubService) SlotStatistics(_ context.Context, _ uuid.UUID, from, to time.Time) (*appointment.SlotStatistics, error) {
	s.gotFrom, s.gotTo = from, to
	return &appointment.SlotStatistics{Total: 4, Booked: 1, Available: 3, UtilizationRate: 25}, s.err
}

func (s *stubService) BookSlot(_ context.Context, _, _ uuid.UUID, req appointment.BookingRequest, actor string) (*appointment.Appointment, error) {
	s.gotBooking, s.gotActor = req, actor
	return s.appt, s.err
}

func (s *stubService) GetAppointment(context.Context, uuid.UUID) (*appointment.Appointment, error) {
	return s.appt, s.err
}

func (s *stubService) UpdateAppointmentStatus(_ context.Context, _ uuid.UUID, to appointment.AppointmentStatus, actor, _ string) (*appointment.Appointment, error) {
	s.gotStatus, s.gotActor = string(to), actor
	return s.appt, s.err
}

func (s *stubService) CancelAppointment(_ context.Context, _ uuid.UUID, _, actor string) (*appointment.Appointment, error) {
	s.gotActor = actor
	return s.appt, s.err
}

func (s *stubService) RescheduleAppointment(_ context.Context, _, _ uuid.UUID, _, actor string) (*appointment.Appointment, error) {
	s.gotActor = actor
	return s.appt, s.err
}

func (s *stubService) GetAppointmentHistory(context.Context, uuid.UUID) ([]appointment.HistoryEntry, error) {
	return s.history, s.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(svc BookingService) http.Handler {
	return NewRouter(RouterConfig{
		Service:  svc,
		Postgres: fakePinger{},
		Logger:   zerolog.Nop(),
		Env:      "test",
		Version:  "test",
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func sampleAvailability() *appointment.AvailabilityWindow {
	return &appointment.AvailabilityWindow{
		ID:           uuid.New(),
		ProviderID:   uuid.New(),
		Date:         schedule.NewDate(2025, time.March, 10),
		StartTime:    schedule.NewClock(9, 0),
		EndTime:      schedule.NewClock(12, 0),
		Timezone:     "America/New_York",
		SlotDuration: 30,
		Status:       appointment.AvailabilityAvailable,
		Location:     appointment.Location{Type: appointment.LocationClinic, Address: "12 Main St"},
	}
}

func sampleAppointment() *appointment.Appointment {
	slotID := uuid.New()
	return &appointment.Appointment{
		ID:              uuid.New(),
		Number:          "APT-20250301-AB12",
		SlotID:          &slotID,
		StartsAt:        time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
		Date:            schedule.NewDate(2025, time.March, 10),
		Time:            schedule.NewClock(9, 0),
		DurationMinutes: 30,
		Timezone:        "America/New_York",
		Mode:            appointment.ModeInPerson,
		Status:          appointment.StatusScheduled,
		Currency:        "USD",
	}
}

const availabilityBody = `{
	"date": "2025-03-10",
	"start_time": "09:00",
	"end_time": "12:00",
	"timezone": "America/New_York",
	"slot_duration": 30,
	"break_duration": 15,
	"is_recurring": true,
	"recurrence_pattern": "weekly",
	"recurrence_end_date": "2025-03-31",
	"location": {"type": "clinic", "address": "12 Main St"},
	"pricing": {"base_fee": "150.00", "currency": "USD"}
}`

func TestCreateAvailabilityHandler(t *testing.T) {
	avail := sampleAvailability()
	conflictStart := time.Date(2025, 3, 17, 13, 45, 0, 0, time.UTC)
	svc := &stubService{result: &appointment.AvailabilityResult{
		Availability: avail,
		SlotsCreated: 11,
		Candidates:   12,
		DateRange: appointment.DateRange{
			Start: schedule.NewDate(2025, time.March, 10),
			End:   schedule.NewDate(2025, time.March, 31),
		},
		Conflicts: []schedule.Candidate{{
			Date:       schedule.NewDate(2025, time.March, 17),
			LocalStart: schedule.NewClock(9, 45),
			Start:      conflictStart,
			End:        conflictStart.Add(30 * time.Minute),
		}},
	}}
	providerID := uuid.New()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/providers/"+providerID.String()+"/availability", availabilityBody)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotProviderID != providerID {
		t.Errorf("provider id not passed through")
	}
	in := svc.gotInput
	if in.Date != schedule.NewDate(2025, time.March, 10) || in.StartTime != schedule.NewClock(9, 0) || in.BreakDuration != 15 {
		t.Errorf("parsed input: %+v", in)
	}
	if in.RecurrencePattern != schedule.PatternWeekly || in.RecurrenceEndDate == nil || in.RecurrenceEndDate.String() != "2025-03-31" {
		t.Errorf("recurrence: %s %v", in.RecurrencePattern, in.RecurrenceEndDate)
	}
	if in.Pricing == nil || in.Pricing.BaseFee.String() != "150" {
		t.Errorf("pricing: %+v", in.Pricing)
	}

	var resp CreateAvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SlotsCreated != 11 || resp.CandidateSlots != 12 || !resp.PartiallyCreated || len(resp.Conflicts) != 1 {
		t.Fatalf("response: %+v", resp)
	}
	if resp.Conflicts[0].LocalStart != schedule.NewClock(9, 45) {
		t.Errorf("conflict local start %s", resp.Conflicts[0].LocalStart)
	}
	if resp.DateRange.Start.String() != "2025-03-10" || resp.DateRange.End.String() != "2025-03-31" {
		t.Errorf("date range: %+v", resp.DateRange)
	}
}

func TestCreateAvailabilityHandlerErrors(t *testing.T) {
	path := "/providers/" + uuid.New().String() + "/availability"
	tests := []struct {
		name     string
		path     string
		body     string
		svcErr   error
		wantCode int
		wantErr  string
	}{
		{"bad provider id", "/providers/nope/availability", availabilityBody, nil, http.StatusBadRequest, "invalid_provider_id"},
		{"malformed json", path, `{"date":`, nil, http.StatusBadRequest, "invalid_request_body"},
		{"missing date", path, `{"start_time":"09:00","end_time":"10:00","timezone":"UTC"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"bad clock", path, `{"date":"2025-03-10","start_time":"9am","end_time":"10:00","timezone":"UTC"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"slot exceeds window", path, availabilityBody, fmt.Errorf("x: %w", appointment.ErrSlotDurationExceedsWindow), http.StatusUnprocessableEntity, "slot_duration_exceeds_window"},
		{"bad timezone", path, availabilityBody, appointment.ErrInvalidTimezone, http.StatusUnprocessableEntity, "invalid_timezone"},
		{"unknown provider", path, availabilityBody, appointment.ErrProviderNotFound, http.StatusNotFound, "provider_not_found"},
		{"generation busy", path, availabilityBody, appointment.ErrConflictDetected, http.StatusConflict, "conflict_detected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.svcErr, result: &appointment.AvailabilityResult{Availability: sampleAvailability()}}
			rec := do(t, newTestRouter(svc), http.MethodPost, tt.path, tt.body)

			if rec.Code != tt.wantCode {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Error; got != tt.wantErr {
				t.Errorf("error code %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestSearchSlotsHandler(t *testing.T) {
	start := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	svc := &stubService{slots: []appointment.AppointmentSlot{
		{ID: uuid.New(), StartTime: start, EndTime: start.Add(30 * time.Minute), Status: appointment.SlotAvailable},
	}}
	providerID := uuid.New()

	rec := do(t, newTestRouter(svc), http.MethodGet,
		"/slots?provider_id="+providerID.String()+"&date=2025-03-10&timezone=America/New_York&duration=30&limit=5", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	f := svc.gotFilter
	if f.ProviderID == nil || *f.ProviderID != providerID || f.DurationMinutes != 30 || f.Limit != 5 {
		t.Errorf("filter: %+v", f)
	}
	// local midnight in New York on 2025-03-10 is 04:00 UTC (EDT)
	if !f.From.Equal(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)) || f.To.Sub(f.From) != 24*time.Hour {
		t.Errorf("range %s - %s", f.From, f.To)
	}

	var resp SlotListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Slots[0].DurationMinutes != 30 {
		t.Errorf("response: %+v", resp)
	}
}

func TestSearchSlotsHandlerRequiresRange(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{}), http.MethodGet, "/slots", "")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error != "invalid_query" {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookSlotHandler(t *testing.T) {
	svc := &stubService{appt: sampleAppointment()}
	body := `{"patient_id":"` + uuid.NewString() + `","reason_for_visit":"Annual physical","estimated_amount":"120.50"}`

	rec := do(t, newTestRouter(svc), http.MethodPost, "/slots/"+uuid.NewString()+"/book", body, "X-Actor-ID", "patient:42")

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotActor != "patient:42" || svc.gotBooking.CreatedBy != "patient:42" {
		t.Errorf("actor %q created_by %q", svc.gotActor, svc.gotBooking.CreatedBy)
	}
	if !svc.gotBooking.EstimatedAmount.Valid || svc.gotBooking.EstimatedAmount.Decimal.String() != "120.5" {
		t.Errorf("estimated amount %v", svc.gotBooking.EstimatedAmount)
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Number != "APT-20250301-AB12" || resp.Time != schedule.NewClock(9, 0) {
		t.Errorf("response: %+v", resp)
	}
	if !resp.EndsAt.Equal(resp.StartsAt.Add(30 * time.Minute)) {
		t.Errorf("ends_at %s", resp.EndsAt)
	}
}

func TestBookSlotHandlerErrors(t *testing.T) {
	valid := `{"patient_id":"` + uuid.NewString() + `","reason_for_visit":"x"}`
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
		wantErr  string
	}{
		{"missing reason", `{"patient_id":"` + uuid.NewString() + `"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"bad patient id", `{"patient_id":"42","reason_for_visit":"x"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"bad mode", `{"patient_id":"` + uuid.NewString() + `","reason_for_visit":"x","appointment_mode":"carrier_pigeon"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"lost race", valid, fmt.Errorf("book: %w", appointment.ErrSlotUnavailable), http.StatusConflict, "slot_unavailable"},
		{"unknown slot", valid, appointment.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
		{"unknown patient", valid, appointment.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{"unexpected", valid, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.svcErr, appt: sampleAppointment()}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/slots/"+uuid.NewString()+"/book", tt.body)

			if rec.Code != tt.wantCode {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Error; got != tt.wantErr {
				t.Errorf("error code %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestAppointmentHandlersMapErrors(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		svcErr   error
		wantCode int
		wantErr  string
	}{
		{"cancel past appointment", http.MethodPost, "/appointments/" + id + "/cancel", `{"reason":"x"}`, appointment.ErrNotCancellable, http.StatusConflict, "not_cancellable"},
		{"cancel without body", http.MethodPost, "/appointments/" + id + "/cancel", "", appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"completed to scheduled", http.MethodPatch, "/appointments/" + id + "/status", `{"status":"scheduled"}`, appointment.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},
		{"reschedule not upcoming", http.MethodPost, "/appointments/" + id + "/reschedule", `{"slot_id":"` + uuid.NewString() + `"}`, appointment.ErrNotReschedulable, http.StatusConflict, "not_reschedulable"},
		{"reschedule bad slot id", http.MethodPost, "/appointments/" + id + "/reschedule", `{"slot_id":"x"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"status raced", http.MethodPatch, "/appointments/" + id + "/status", `{"status":"confirmed"}`, fmt.Errorf("update appointment: %w", appointment.ErrStaleWrite), http.StatusConflict, "concurrent_update"},
		{"history unknown", http.MethodGet, "/appointments/" + id + "/history", "", appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"bad id", http.MethodGet, "/appointments/nope", "", nil, http.StatusBadRequest, "invalid_appointment_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.svcErr, appt: sampleAppointment()}
			rec := do(t, newTestRouter(svc), tt.method, tt.path, tt.body)

			if rec.Code != tt.wantCode {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := decodeError(t, rec).Error; got != tt.wantErr {
				t.Errorf("error code %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestUpdateSlotStatusHandler(t *testing.T) {
	svc := &stubService{slot: &appointment.AppointmentSlot{ID: uuid.New(), Status: appointment.SlotBlocked}}

	rec := do(t, newTestRouter(svc), http.MethodPatch, "/slots/"+uuid.NewString()+"/status", `{"status":"blocked","override":true}`, "X-Actor-ID", "provider:7")

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotStatus != "blocked" || !svc.gotOverride || svc.gotActor != "provider:7" {
		t.Errorf("got status=%s override=%v actor=%s", svc.gotStatus, svc.gotOverride, svc.gotActor)
	}

	svc.err = appointment.ErrInvalidStatusTransition
	rec = do(t, newTestRouter(svc), http.MethodPatch, "/slots/"+uuid.NewString()+"/status", `{"status":"available"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d", rec.Code)
	}
	if svc.gotActor != anonymousActor {
		t.Errorf("actor without header = %q", svc.gotActor)
	}
}

func TestSlotStatisticsHandler(t *testing.T) {
	svc := &stubService{}
	path := "/providers/" + uuid.NewString() + "/slot-stats?from=2025-03-10T00:00:00Z&to=2025-03-11T00:00:00Z"

	rec := do(t, newTestRouter(svc), http.MethodGet, path, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var stats appointment.SlotStatistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.UtilizationRate != 25 || svc.gotTo.Sub(svc.gotFrom) != 24*time.Hour {
		t.Errorf("stats %+v range %s-%s", stats, svc.gotFrom, svc.gotTo)
	}
}

func TestDeleteAvailabilityHandler(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{}), http.MethodDelete, "/availability/"+uuid.NewString(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}

	svc := &stubService{err: fmt.Errorf("%w: 2 slot(s) booked or referenced by appointments", appointment.ErrAvailabilityHasBookings)}
	rec = do(t, newTestRouter(svc), http.MethodDelete, "/availability/"+uuid.NewString(), "")
	if rec.Code != http.StatusConflict || decodeError(t, rec).Error != "availability_has_bookings" {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{}), http.MethodGet, "/health/live", "", "X-Request-ID", "req-123")
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}

	rec = do(t, newTestRouter(&stubService{}), http.MethodGet, "/health/live", "")
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("generated request id is not a UUID: %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		pg, redis  Pinger
		wantCode   int
		wantStatus string
		wantRedis  string
	}{
		{"all up", fakePinger{}, fakePinger{}, http.StatusOK, "ok", "ok"},
		{"redis disabled", fakePinger{}, nil, http.StatusOK, "ok", "disabled"},
		{"redis down", fakePinger{}, fakePinger{err: errors.New("refused")}, http.StatusOK, "degraded", "down"},
		{"postgres down", fakePinger{err: errors.New("refused")}, fakePinger{}, http.StatusServiceUnavailable, "error", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.redis, "test", "v1")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status %d, want %d", rec.Code, tt.wantCode)
			}
			var resp ReadinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus || resp.Dependencies["redis"] != tt.wantRedis {
				t.Errorf("response: %+v", resp)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}
