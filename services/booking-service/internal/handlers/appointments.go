package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
)

const timeLayout = time.RFC3339

type cancelRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,max=64"`
}

type cancelResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

// Details serves the confirmation page of one appointment.
func (h *WidgetHandler) Details(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := queryParam(r, "appointment_id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id required")
		return
	}
	view, err := h.appts.Details(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *WidgetHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id required")
		return
	}

	appt, err := h.appts.Cancel(r.Context(), req.AppointmentID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	resp := cancelResponse{AppointmentID: appt.ID, Status: string(appt.Status)}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(timeLayout)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// History lists the other appointments of the client who booked appointment_id.
func (h *WidgetHandler) History(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := queryParam(r, "appointment_id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id required")
		return
	}
	views, err := h.appts.HistoryFor(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if views == nil {
		views = []appointments.View{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": views})
}
