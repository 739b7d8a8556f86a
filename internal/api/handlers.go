package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

func createAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		var req CreateAvailabilityRequest
		if !decodeBody(w, r, &req) {
			return
		}

		in, err := req.toInput()
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		res, err := svc.CreateAvailability(r.Context(), providerID, in)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := CreateAvailabilityResponse{
			Availability:     toAvailabilityResponse(res.Availability),
			SlotsCreated:     res.SlotsCreated,
			CandidateSlots:   res.Candidates,
			Conflicts:        make([]ConflictResponse, 0, len(res.Conflicts)),
			DateRange:        res.DateRange,
			PartiallyCreated: res.Partial(),
		}
		for _, c := range res.Conflicts {
			resp.Conflicts = append(resp.Conflicts, ConflictResponse{
				Date:       c.Date,
				LocalStart: c.LocalStart,
				StartTime:  c.Start,
				EndTime:    c.End,
			})
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func (req CreateAvailabilityRequest) toInput() (appointment.AvailabilityInput, error) {
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return appointment.AvailabilityInput{}, err
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return appointment.AvailabilityInput{}, err
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return appointment.AvailabilityInput{}, err
	}

	in := appointment.AvailabilityInput{
		Date:                   date,
		StartTime:              start,
		EndTime:                end,
		Timezone:               req.Timezone,
		SlotDuration:           req.SlotDuration,
		BreakDuration:          req.BreakDuration,
		IsRecurring:            req.IsRecurring,
		RecurrencePattern:      schedule.Pattern(req.RecurrencePattern),
		MaxAppointmentsPerSlot: req.MaxAppointmentsPerSlot,
		AppointmentType:        appointment.AppointmentType(req.AppointmentType),
		Location:               req.Location,
		Pricing:                req.Pricing,
		Notes:                  req.Notes,
	}
	if req.RecurrenceEndDate != nil {
		d, err := schedule.ParseDate(*req.RecurrenceEndDate)
		if err != nil {
			return appointment.AvailabilityInput{}, err
		}
		in.RecurrenceEndDate = &d
	}
	return in, nil
}

func getAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_availability_id")
		if !ok {
			return
		}

		avail, err := svc.GetAvailability(r.Context(), id)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAvailabilityResponse(avail))
	}
}

func deleteAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_availability_id")
		if !ok {
			return
		}

		if err := svc.DeleteAvailability(r.Context(), id); err != nil {
			handleAvailabilityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func searchSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseSlotFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		slots, err := svc.SearchSlots(r.Context(), f)
		if err != nil {
			handleSlotError(w, err)
			return
		}

		resp := SlotListResponse{Slots: make([]SlotResponse, 0, len(slots)), Count: len(slots)}
		for i := range slots {
			resp.Slots = append(resp.Slots, toSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseSlotFilter accepts either from/to as RFC 3339 instants or a local date plus
// timezone, which searches that calendar day.
func parseSlotFilter(r *http.Request) (appointment.SlotFilter, error) {
	q := r.URL.Query()
	var f appointment.SlotFilter

	if v := q.Get("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("provider_id must be a valid UUID")
		}
		f.ProviderID = &id
	}

	if v := q.Get("date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			return f, err
		}
		tz := q.Get("timezone")
		if tz == "" {
			tz = "UTC"
		}
		loc, err := schedule.LoadLocation(tz)
		if err != nil {
			return f, err
		}
		f.From = d.In(loc)
		f.To = d.AddDays(1).In(loc)
	} else {
		from, to, err := parseRange(q.Get("from"), q.Get("to"))
		if err != nil {
			return f, err
		}
		f.From, f.To = from, to
	}

	f.AppointmentType = appointment.AppointmentType(q.Get("appointment_type"))
	f.Status = appointment.SlotStatus(q.Get("status"))
	if v := q.Get("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("duration must be an integer number of minutes")
		}
		f.DurationMinutes = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("limit must be an integer")
		}
		f.Limit = n
	}
	return f, nil
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to are required (RFC 3339), or date with timezone")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be an RFC 3339 timestamp")
	}
	return from.UTC(), to.UTC(), nil
}

func getSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_slot_id")
		if !ok {
			return
		}

		slot, err := svc.GetSlot(r.Context(), id)
		if err != nil {
			handleSlotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func updateSlotStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_slot_id")
		if !ok {
			return
		}

		var req UpdateSlotStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		slot, err := svc.SetSlotStatus(r.Context(), id, appointment.SlotStatus(req.Status), GetActor(r.Context()), req.Override)
		if err != nil {
			handleSlotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func slotStatisticsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		stats, err := svc.SlotStatistics(r.Context(), providerID, from, to)
		if err != nil {
			handleSlotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, appointment.ErrAvailabilityNotFound):
		writeError(w, http.StatusNotFound, "availability_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTimeRange):
		writeError(w, http.StatusUnprocessableEntity, "invalid_time_range", err.Error())
	case errors.Is(err, appointment.ErrInvalidTimezone):
		writeError(w, http.StatusUnprocessableEntity, "invalid_timezone", err.Error())
	case errors.Is(err, appointment.ErrInvalidRecurrence):
		writeError(w, http.StatusUnprocessableEntity, "invalid_recurrence", err.Error())
	case errors.Is(err, appointment.ErrSlotDurationExceedsWindow):
		writeError(w, http.StatusUnprocessableEntity, "slot_duration_exceeds_window", err.Error())
	case errors.Is(err, appointment.ErrInvalidDuration):
		writeError(w, http.StatusUnprocessableEntity, "invalid_duration", err.Error())
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, appointment.ErrConflictDetected):
		writeError(w, http.StatusConflict, "conflict_detected", err.Error())
	case errors.Is(err, appointment.ErrAvailabilityHasBookings):
		writeError(w, http.StatusConflict, "availability_has_bookings", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleSlotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrConflictDetected):
		writeError(w, http.StatusConflict, "conflict_detected", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
