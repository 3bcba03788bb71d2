package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/selection"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/storage"
)

type bookRequest struct {
	BusinessID string `json:"business_id" validate:"required,max=64"`
	ServiceID  string `json:"service_id" validate:"required,max=64"`
	StaffID    string `json:"staff_id" validate:"omitempty,max=64"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required,hhmm"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Phone      string `json:"phone" validate:"required,max=32"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func (req *bookRequest) normalize() {
	for _, f := range []*string{&req.BusinessID, &req.ServiceID, &req.StaffID, &req.Date, &req.Time,
		&req.FirstName, &req.LastName, &req.Email, &req.Phone} {
		*f = strings.TrimSpace(*f)
	}
}

// Book recomputes the chosen day, binds the picked slot to a staff member and creates the
// appointment. Requests carrying an Idempotency-Key replay the first outcome.
func (h *WidgetHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.normalize()
	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if h.idem == nil {
		key = ""
	}
	if key != "" {
		rec, fresh, err := h.idem.Reserve(ctx, req.BusinessID, key)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		if !fresh {
			if !rec.Completed() {
				httpx.WriteError(w, http.StatusConflict, "request with this idempotency key is in progress")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	var receipt *appointments.Receipt
	if key != "" {
		receipt = &appointments.Receipt{Key: key, StatusCode: http.StatusCreated, Body: bookResponseBody}
	}
	appt, err := h.book(ctx, req, receipt)
	if err != nil {
		// A lost reservation now belongs to another request; leave it alone.
		if key != "" && !errors.Is(err, storage.ErrReservationLost) {
			if rerr := h.idem.Release(context.WithoutCancel(ctx), req.BusinessID, key); rerr != nil {
				h.logger.Warn("idempotency release failed", "err", rerr, "business_id", req.BusinessID)
			}
		}
		h.writeErr(w, r, err)
		return
	}

	body, err := bookResponseBody(appt)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// bookResponseBody is both the 201 body and the payload replayed for its Idempotency-Key.
func bookResponseBody(appt model.Appointment) ([]byte, error) {
	return json.Marshal(bookResponse{
		AppointmentID: appt.ID,
		StaffID:       appt.StaffID,
		Start:         appt.Start.Format(timeLayout),
		End:           appt.End.Format(timeLayout),
	})
}

func (h *WidgetHandler) book(ctx context.Context, req bookRequest, receipt *appointments.Receipt) (model.Appointment, error) {
	svc, err := h.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if svc.BusinessID != "" && svc.BusinessID != req.BusinessID {
		return model.Appointment{}, model.ErrNotFound
	}

	loc := h.location()
	date, err := clock.ParseDate(req.Date, loc)
	if err != nil {
		return model.Appointment{}, appointments.ErrInvalidDraft
	}
	snap, err := h.loader.Load(ctx, req.BusinessID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return model.Appointment{}, err
	}
	if err := snap.Check(); err != nil {
		return model.Appointment{}, err
	}

	slots := h.engine.DaySlots(date, snap, svc.Duration, req.StaffID, h.now())
	slot, ok := selection.FindSlot(slots, req.Time)
	if !ok {
		return model.Appointment{}, selection.ErrEmptySlot
	}
	booking, err := selection.Resolve(date, slot, req.StaffID, h.choose)
	if err != nil {
		return model.Appointment{}, err
	}

	return h.appts.Create(ctx, appointments.Draft{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    booking.StaffID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Start:      booking.Start,
		Duration:   svc.Duration,
		Receipt:    receipt,
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, jsonName(fe.Field()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

var jsonNames = map[string]string{
	"BusinessID": "business_id",
	"ServiceID":  "service_id",
	"StaffID":    "staff_id",
	"Date":       "date",
	"Time":       "time",
	"FirstName":  "first_name",
	"LastName":   "last_name",
	"Email":      "email",
	"Phone":      "phone",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
