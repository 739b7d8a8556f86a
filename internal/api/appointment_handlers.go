package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/provider-availability-booking/internal/appointment"
)

func bookSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := pathUUID(w, r, "id", "invalid_slot_id")
		if !ok {
			return
		}

		var req BookSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}

		// uuid tags already checked the formats
		patientID := uuid.MustParse(req.PatientID)
		actor := GetActor(r.Context())
		booking := appointment.BookingRequest{
			Mode:                appointment.AppointmentMode(req.Mode),
			Type:                appointment.AppointmentType(req.AppointmentType),
			ReasonForVisit:      req.ReasonForVisit,
			Symptoms:            req.Symptoms,
			MedicalHistoryNotes: req.MedicalHistoryNotes,
			SpecialInstructions: req.SpecialInstructions,
			EmergencyContact:    req.EmergencyContact,
			Location:            req.Location,
			VideoCallLink:       req.VideoCallLink,
			Currency:            req.Currency,
			CreatedBy:           actor,
		}
		if req.ProviderID != nil {
			id := uuid.MustParse(*req.ProviderID)
			booking.ProviderID = &id
		}
		if req.EstimatedAmount != nil {
			booking.EstimatedAmount = decimal.NewNullDecimal(*req.EstimatedAmount)
		}

		appt, err := svc.BookSlot(r.Context(), slotID, patientID, booking, actor)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req UpdateAppointmentStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.UpdateAppointmentStatus(r.Context(), id, appointment.AppointmentStatus(req.Status), GetActor(r.Context()), req.Note)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, req.Reason, GetActor(r.Context()))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, uuid.MustParse(req.SlotID), req.Reason, GetActor(r.Context()))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func appointmentHistoryHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		history, err := svc.GetAppointmentHistory(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := make([]HistoryEntryResponse, 0, len(history))
		for _, h := range history {
			resp = append(resp, toHistoryResponse(h))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrNotCancellable):
		writeError(w, http.StatusConflict, "not_cancellable", err.Error())
	case errors.Is(err, appointment.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "not_reschedulable", err.Error())
	case errors.Is(err, appointment.ErrStaleWrite):
		writeError(w, http.StatusConflict, "concurrent_update", err.Error())
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
