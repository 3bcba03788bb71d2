package source

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

type writableCatalog struct {
	*fakeCatalog
	applied []CatalogWrite
}

func (w *writableCatalog) Apply(_ context.Context, batch CatalogWrite) error {
	w.applied = append(w.applied, batch)
	if batch.BusinessHours != nil {
		w.hours = batch.BusinessHours
	}
	for id, h := range batch.StaffHours {
		w.staffHours[id] = h
	}
	return nil
}

func TestCatalogWrite_Validate(t *testing.T) {
	cases := []struct {
		name  string
		write CatalogWrite
		ok    bool
	}{
		{"valid", CatalogWrite{BusinessID: "biz-1", BusinessHours: mondayHours}, true},
		{"closed day ignores times", CatalogWrite{BusinessID: "biz-1", BusinessHours: model.WeeklyHours{"sunday": {IsOpen: false, OpenTime: "x"}}}, true},
		{"missing business", CatalogWrite{BusinessHours: mondayHours}, false},
		{"unknown day", CatalogWrite{BusinessID: "biz-1", BusinessHours: model.WeeklyHours{"funday": {}}}, false},
		{"bad clock", CatalogWrite{BusinessID: "biz-1", StaffHours: map[string]model.WeeklyHours{"s": {"monday": {IsOpen: true, OpenTime: "9h", CloseTime: "12:00"}}}}, false},
		{"inverted", CatalogWrite{BusinessID: "biz-1", BusinessHours: model.WeeklyHours{"monday": {IsOpen: true, OpenTime: "12:00", CloseTime: "09:00"}}}, false},
		{"zero duration", CatalogWrite{BusinessID: "biz-1", Services: []model.Service{{ID: "svc"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.write.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestCatalogWrite_StaffIDsDeduplicated(t *testing.T) {
	w := CatalogWrite{
		Staff:      []model.StaffMember{{ID: "b"}, {ID: "a"}},
		StaffHours: map[string]model.WeeklyHours{"a": mondayHours, "c": mondayHours},
	}
	assert.Equal(t, []string{"a", "b", "c"}, w.StaffIDs())
}

func TestCachedCatalog_ApplyEvictsTouchedKeys(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	backend := &writableCatalog{fakeCatalog: newFakeCatalog()}
	cached := NewCachedCatalog(backend, rdb, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := cached.GetStaffHours(ctx, "staff-alice")
	require.NoError(t, err)
	_, err = cached.GetService(ctx, "svc-cut")
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:staff:staff-alice:hours"))

	evening := model.WeeklyHours{"monday": {IsOpen: true, OpenTime: "14:00", CloseTime: "18:00"}}
	require.NoError(t, cached.Apply(ctx, CatalogWrite{
		BusinessID: "biz-1",
		StaffHours: map[string]model.WeeklyHours{"staff-alice": evening},
		Services:   []model.Service{{ID: "svc-cut", Duration: model.ServiceDuration{Minutes: 45}}},
	}))
	assert.False(t, mr.Exists("catalog:staff:staff-alice:hours"))
	assert.False(t, mr.Exists("catalog:service:svc-cut"))

	hours, err := cached.GetStaffHours(ctx, "staff-alice")
	require.NoError(t, err)
	assert.Equal(t, evening, hours)
	assert.Len(t, backend.applied, 1)
}

func TestCachedCatalog_ApplyOnReadOnlyBackend(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cached := NewCachedCatalog(newFakeCatalog(), rdb, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := cached.Apply(context.Background(), CatalogWrite{BusinessID: "biz-1"})
	require.ErrorIs(t, err, ErrReadOnlyCatalog)
}
