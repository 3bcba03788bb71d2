package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

func (h *WidgetHandler) Services(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	businessID := queryParam(r, "business_id")
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id required")
		return
	}
	services, err := h.catalog.ListServices(r.Context(), businessID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if services == nil {
		services = []model.Service{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (h *WidgetHandler) Staff(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	businessID := queryParam(r, "business_id")
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id required")
		return
	}
	staff, err := h.catalog.ListStaff(r.Context(), businessID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if staff == nil {
		staff = []model.StaffMember{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"staff": staff})
}
