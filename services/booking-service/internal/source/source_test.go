package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

type fakeCatalog struct {
	mu         sync.Mutex
	calls      map[string]int
	staff      []model.StaffMember
	hours      model.WeeklyHours
	staffHours map[string]model.WeeklyHours
	services   []model.Service
	staffErr   error
}

func (f *fakeCatalog) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeCatalog) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalog) ListStaff(context.Context, string) ([]model.StaffMember, error) {
	f.hit("ListStaff")
	return f.staff, f.staffErr
}

func (f *fakeCatalog) GetStaff(_ context.Context, id string) (model.StaffMember, error) {
	f.hit("GetStaff")
	for _, m := range f.staff {
		if m.ID == id {
			return m, nil
		}
	}
	return model.StaffMember{}, model.ErrNotFound
}

func (f *fakeCatalog) GetBusinessHours(context.Context, string) (model.WeeklyHours, error) {
	f.hit("GetBusinessHours")
	if f.hours == nil {
		return nil, model.ErrNotFound
	}
	return f.hours, nil
}

func (f *fakeCatalog) GetStaffHours(_ context.Context, id string) (model.WeeklyHours, error) {
	f.hit("GetStaffHours")
	h, ok := f.staffHours[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return h, nil
}

func (f *fakeCatalog) ListServices(context.Context, string) ([]model.Service, error) {
	f.hit("ListServices")
	return f.services, nil
}

func (f *fakeCatalog) GetService(_ context.Context, id string) (model.Service, error) {
	f.hit("GetService")
	for _, s := range f.services {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Service{}, model.ErrNotFound
}

type fakeAppointments struct {
	appts []model.Appointment
	err   error
}

func (f fakeAppointments) ListAppointments(context.Context, string, time.Time, time.Time) ([]model.Appointment, error) {
	return f.appts, f.err
}

var mondayHours = model.WeeklyHours{"monday": {IsOpen: true, OpenTime: "09:00", CloseTime: "12:00"}}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		staff: []model.StaffMember{
			{ID: "staff-alice", FirstName: "Alice", BusinessID: "biz-1"},
			{ID: "staff-bruno", FirstName: "Bruno", BusinessID: "biz-1"},
		},
		hours:      mondayHours,
		staffHours: map[string]model.WeeklyHours{"staff-alice": mondayHours},
		services: []model.Service{
			{ID: "svc-cut", BusinessID: "biz-1", Title: "Coupe", Price: 35, Duration: model.ServiceDuration{Minutes: 30}},
		},
	}
}

func TestLoader_AssemblesSnapshot(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	loader := NewLoader(newFakeCatalog(), fakeAppointments{appts: []model.Appointment{
		{ID: "a1", StaffID: "staff-alice", Start: start, End: start.Add(30 * time.Minute), Status: model.StatusConfirmed},
	}}, paris)

	snap, err := loader.Load(context.Background(), "biz-1", start, start.AddDate(0, 0, 56))
	require.NoError(t, err)

	assert.Len(t, snap.Staff, 2)
	assert.Equal(t, mondayHours, snap.BusinessHours)
	assert.Contains(t, snap.StaffHours, "staff-alice")
	assert.NotContains(t, snap.StaffHours, "staff-bruno")
	require.Len(t, snap.Appointments, 1)
	assert.Equal(t, paris, snap.Appointments[0].Start.Location())
	assert.True(t, snap.Appointments[0].Start.Equal(start))
	assert.Equal(t, []string{"staff-bruno"}, snap.StaffWithoutHours())
}

func TestLoader_MissingBusinessHoursIsNotAnError(t *testing.T) {
	cat := newFakeCatalog()
	cat.hours = nil
	snap, err := NewLoader(cat, fakeAppointments{}, nil).Load(context.Background(), "biz-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, snap.BusinessHours)
	assert.Error(t, snap.Check())
}

func TestLoader_WrapsAdapterFailures(t *testing.T) {
	boom := errors.New("connection reset")

	cat := newFakeCatalog()
	cat.staffErr = boom
	_, err := NewLoader(cat, fakeAppointments{}, nil).Load(context.Background(), "biz-1", time.Time{}, time.Time{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "source: list staff")

	_, err = NewLoader(newFakeCatalog(), fakeAppointments{err: boom}, nil).Load(context.Background(), "biz-1", time.Time{}, time.Time{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "source: list appointments")
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestCachedCatalog_ReadThroughAndInvalidate(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	cat := newFakeCatalog()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cached := NewCachedCatalog(cat, rdb, time.Minute, logger)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		hours, err := cached.GetBusinessHours(ctx, "biz-1")
		require.NoError(t, err)
		assert.Equal(t, mondayHours, hours)
	}
	assert.Equal(t, 1, cat.count("GetBusinessHours"))
	assert.True(t, mr.Exists("catalog:business:biz-1:hours"))

	_, err := cached.GetStaffHours(ctx, "staff-alice")
	require.NoError(t, err)
	_, err = cached.GetStaffHours(ctx, "staff-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.count("GetStaffHours"))

	require.NoError(t, cached.Invalidate(ctx, "biz-1", "staff-alice"))
	_, err = cached.GetBusinessHours(ctx, "biz-1")
	require.NoError(t, err)
	_, err = cached.GetStaffHours(ctx, "staff-alice")
	require.NoError(t, err)
	assert.Equal(t, 2, cat.count("GetBusinessHours"))
	assert.Equal(t, 2, cat.count("GetStaffHours"))

	mr.FastForward(2 * time.Minute)
	_, err = cached.GetBusinessHours(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, cat.count("GetBusinessHours"))
}

func TestCachedCatalog_NotFoundIsNotCached(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	cat := newFakeCatalog()
	cached := NewCachedCatalog(cat, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := cached.GetStaffHours(context.Background(), "staff-bruno")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.False(t, mr.Exists("catalog:staff:staff-bruno:hours"))

	svc, err := cached.GetService(context.Background(), "svc-cut")
	require.NoError(t, err)
	assert.Equal(t, "Coupe", svc.Title)
	require.NoError(t, cached.InvalidateService(context.Background(), "svc-cut"))
	assert.False(t, mr.Exists("catalog:service:svc-cut"))
}

func TestCachedCatalog_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()
	cat := newFakeCatalog()
	cached := NewCachedCatalog(cat, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	staff, err := cached.ListStaff(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Len(t, staff, 2)
	assert.Equal(t, 1, cat.count("ListStaff"))
}
