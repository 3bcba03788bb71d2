package storage

import (
	"context"
	"encoding/json"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

func TestCatalog_ListStaff(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM staff").
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "business_id"}).
			AddRow("staff-alice", "Alice", "Martin", "biz-1").
			AddRow("staff-bob", "Bob", "Durand", "biz-1"))

	staff, err := NewCatalogRepository(mock, outbox.NewRepository()).ListStaff(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "Bob Durand", staff[1].FullName())
}

func TestCatalog_BusinessHoursDecodesJSON(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	raw := []byte(`{"monday":{"isOpen":true,"openTime":"09:00","closeTime":"12:00"},"sunday":{"isOpen":false}}`)
	mock.ExpectQuery("FROM business_hours").
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"hours"}).AddRow(raw))

	hours, err := NewCatalogRepository(mock, outbox.NewRepository()).GetBusinessHours(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, model.DayHours{IsOpen: true, OpenTime: "09:00", CloseTime: "12:00"}, hours["monday"])
	assert.False(t, hours["sunday"].IsOpen)
}

func TestCatalog_MissingDocumentsAreNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCatalogRepository(mock, outbox.NewRepository())
	ctx := context.Background()

	mock.ExpectQuery("FROM staff_hours").WithArgs("ghost").WillReturnRows(pgxmock.NewRows([]string{"hours"}))
	_, err = repo.GetStaffHours(ctx, "ghost")
	require.ErrorIs(t, err, model.ErrNotFound)

	mock.ExpectQuery("FROM services").WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "business_id", "title", "description", "price", "duration_hours", "duration_minutes", "category_id"}))
	_, err = repo.GetService(ctx, "ghost")
	require.ErrorIs(t, err, model.ErrNotFound)

	mock.ExpectQuery("FROM staff").WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "business_id"}))
	_, err = repo.GetStaff(ctx, "ghost")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_GetService(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM services").
		WithArgs("svc-color").
		WillReturnRows(pgxmock.NewRows([]string{"id", "business_id", "title", "description", "price", "duration_hours", "duration_minutes", "category_id"}).
			AddRow("svc-color", "biz-1", "Couleur", "", 60.0, 1, 30, ""))

	svc, err := NewCatalogRepository(mock, outbox.NewRepository()).GetService(context.Background(), "svc-color")
	require.NoError(t, err)
	assert.Equal(t, 90, svc.Duration.TotalMinutes())
	assert.Equal(t, 60.0, svc.Price)
}

func TestCatalog_ApplyRecordsCatalogChanged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hours := model.WeeklyHours{"monday": {IsOpen: true, OpenTime: "09:00", CloseTime: "17:00"}}
	raw, err := json.Marshal(hours)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_hours").WithArgs("biz-1", raw).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO staff ").WithArgs("staff-alice", "biz-1", "Alice", "Martin").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO staff_hours").WithArgs("staff-alice", raw).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(outbox.AggregateCatalog, "biz-1", "biz-1", outbox.TopicCatalogChanged, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = NewCatalogRepository(mock, outbox.NewRepository()).Apply(context.Background(), source.CatalogWrite{
		BusinessID:    "biz-1",
		BusinessHours: hours,
		Staff:         []model.StaffMember{{ID: "staff-alice", FirstName: "Alice", LastName: "Martin"}},
		StaffHours:    map[string]model.WeeklyHours{"staff-alice": hours},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
