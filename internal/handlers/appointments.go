package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sharif-ahmed/patientdesk/internal/model"
	"github.com/sharif-ahmed/patientdesk/internal/storage"
)

// AppointmentHandler serves the appointment ledger. Every route is
// protected; the owning patient always comes from the request identity.
type AppointmentHandler struct {
	store  AppointmentStore
	logger *slog.Logger
}

func NewAppointmentHandler(store AppointmentStore, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{store: store, logger: logger}
}

type createAppointmentRequest struct {
	FromDatetime string `json:"from_datetime"`
	ToDatetime   string `json:"to_datetime"`
}

type appointmentResponse struct {
	ID           int64  `json:"id"`
	PatientID    int64  `json:"patient_id"`
	FromDatetime string `json:"from_datetime"`
	ToDatetime   string `json:"to_datetime"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		FromDatetime: a.StartTime.Format(time.RFC3339),
		ToDatetime:   a.EndTime.Format(time.RFC3339),
	}
}

// Create handles POST /appointments for the authenticated patient.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, _ := PatientIDFromContext(r.Context())

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.FromDatetime) == "" || strings.TrimSpace(req.ToDatetime) == "" {
		writeMessage(w, http.StatusBadRequest, "from_datetime and to_datetime are required")
		return
	}

	from, err := parseDatetime(req.FromDatetime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid from_datetime")
		return
	}
	to, err := parseDatetime(req.ToDatetime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid to_datetime")
		return
	}

	appt, err := h.store.Create(r.Context(), model.Appointment{
		PatientID: callerID,
		StartTime: from,
		EndTime:   to,
	})
	if err != nil {
		h.logger.Error("appointment create failed", "err", err, "patient_id", callerID)
		writeMessage(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "appointment created",
		"id":      appt.ID,
	})
}

// List handles GET /appointments, filtered to the caller's own records.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, _ := PatientIDFromContext(r.Context())

	appts, err := h.store.ListForPatient(r.Context(), callerID)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err, "patient_id", callerID)
		writeMessage(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /appointments/{id}; only the owning patient may
// cancel an appointment.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := PatientIDFromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "appointment not found")
		return
	}

	if err := h.store.Delete(r.Context(), id, callerID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeMessage(w, http.StatusNotFound, "appointment not found")
		case errors.Is(err, storage.ErrNotOwner):
			writeMessage(w, http.StatusUnauthorized, "you may only delete your own appointments")
		default:
			h.logger.Error("appointment delete failed", "err", err, "appointment_id", id)
			writeMessage(w, http.StatusInternalServerError, "failed to delete appointment")
		}
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("appointment with id=%d deleted", id))
}

// parseDatetime accepts RFC 3339 and the common zone-less variants clients
// send; zone-less values are taken as UTC.
func parseDatetime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime %q", raw)
}
