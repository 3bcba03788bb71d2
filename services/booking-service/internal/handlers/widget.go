// Package handlers serves the public booking widget API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/selection"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/storage"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// CatalogReader is the part of the catalog the widget reads directly.
type CatalogReader interface {
	ListStaff(ctx context.Context, businessID string) ([]model.StaffMember, error)
	ListServices(ctx context.Context, businessID string) ([]model.Service, error)
	GetService(ctx context.Context, serviceID string) (model.Service, error)
}

// SnapshotLoader assembles availability inputs; *source.Loader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context, businessID string, from, to time.Time) (*availability.Snapshot, error)
	Location() *time.Location
}

// AppointmentService is implemented by *appointments.Service.
type AppointmentService interface {
	Create(ctx context.Context, d appointments.Draft) (model.Appointment, error)
	Cancel(ctx context.Context, id string) (model.Appointment, error)
	Details(ctx context.Context, id string) (appointments.View, error)
	HistoryFor(ctx context.Context, id string) ([]appointments.View, error)
}

// Idempotency is implemented by *storage.IdempotencyStore.
type Idempotency interface {
	Reserve(ctx context.Context, businessID, key string) (storage.IdempotencyRecord, bool, error)
	Release(ctx context.Context, businessID, key string) error
}

type Deps struct {
	Catalog      CatalogReader
	Loader       SnapshotLoader
	Engine       *availability.Engine
	Appointments AppointmentService
	// Idempotency is optional; without it Idempotency-Key headers are ignored.
	Idempotency Idempotency
	Sessions    *Sessions
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
	Choose      selection.Chooser
}

type WidgetHandler struct {
	catalog  CatalogReader
	loader   SnapshotLoader
	engine   *availability.Engine
	appts    AppointmentService
	idem     Idempotency
	sessions *Sessions
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	choose   selection.Chooser
	validate *validator.Validate
}

func NewWidgetHandler(d Deps) *WidgetHandler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Choose == nil {
		d.Choose = selection.RandomChooser
	}
	if d.Engine == nil {
		d.Engine = availability.NewEngine(d.Logger)
	}
	validate := validator.New()
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := clock.ParseClock(fl.Field().String())
		return err == nil
	})
	return &WidgetHandler{
		catalog:  d.Catalog,
		loader:   d.Loader,
		engine:   d.Engine,
		appts:    d.Appointments,
		idem:     d.Idempotency,
		sessions: d.Sessions,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
		choose:   d.Choose,
		validate: validate,
	}
}

// Register mounts the public widget routes on mux.
func (h *WidgetHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/services", h.Services)
	mux.HandleFunc("/api/v1/public/staff", h.Staff)
	mux.HandleFunc("/api/v1/public/availability", h.Availability)
	mux.HandleFunc("/api/v1/public/book", h.Book)
	mux.HandleFunc("/api/v1/public/appointments", h.Details)
	mux.HandleFunc("/api/v1/public/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/public/appointments/history", h.History)
}

func (h *WidgetHandler) location() *time.Location {
	if h.loader == nil || h.loader.Location() == nil {
		return time.UTC
	}
	return h.loader.Location()
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps domain errors to HTTP statuses and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, availability.ErrConfigurationMissing):
		return http.StatusUnprocessableEntity, "hours not configured"
	case errors.Is(err, availability.ErrNoAvailability):
		return http.StatusNotFound, "no availability found in the coming weeks"
	case errors.Is(err, availability.ErrSuperseded):
		return http.StatusConflict, "superseded by a newer request"
	case errors.Is(err, appointments.ErrNotCancellable):
		return http.StatusConflict, "appointment cannot be cancelled"
	case errors.Is(err, appointments.ErrSlotTaken), errors.Is(err, selection.ErrEmptySlot), errors.Is(err, selection.ErrStaffNotInSlot):
		return http.StatusConflict, "time slot no longer available"
	case errors.Is(err, storage.ErrReservationLost):
		return http.StatusConflict, "request with this idempotency key is in progress"
	case errors.Is(err, appointments.ErrInvalidDraft):
		return http.StatusBadRequest, "invalid booking"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timeout"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *WidgetHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	}
	httpx.WriteError(w, status, msg)
}
