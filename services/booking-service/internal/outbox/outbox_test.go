package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/bookingwidget/libs/kafkax"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

var outboxColumns = []string{
	"id", "event_id", "aggregate_type", "aggregate_id", "business_id", "event_type", "payload",
	"traceparent", "tracestate", "created_at",
}

func TestAppointmentBookedPayload(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	evt, err := AppointmentBooked(model.Appointment{
		ID:             "appt-1",
		BusinessID:     "biz-1",
		StaffID:        "staff-alice",
		ClientName:     "Jeanne Dupont",
		ClientEmail:    "jeanne@example.com",
		Start:          start,
		End:            start.Add(30 * time.Minute),
		Status:         model.StatusConfirmed,
		ServiceTitle:   "Coupe",
		StaffFirstName: "Alice",
		StaffLastName:  "Martin",
		CreatedAt:      start.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, TopicAppointmentBooked, evt.EventType)
	assert.Equal(t, "appt-1", evt.AggregateID)
	assert.Equal(t, "biz-1", evt.BusinessID)

	var payload AppointmentPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "Alice Martin", payload.StaffName)
	assert.Equal(t, "confirmed", payload.Status)
	assert.True(t, payload.OccurredAt.Equal(start.Add(-24*time.Hour)))
}

func TestPublishBatch_SendsAndMarksPublished(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow(int64(1), "evt-1", "appointment", "appt-1", "biz-1", TopicAppointmentBooked, []byte(`{"a":1}`), "", "", created).
			AddRow(int64(2), "evt-2", "appointment", "appt-1", "biz-1", TopicAppointmentCancelled, []byte(`{"a":2}`), "", "", created))
	mock.ExpectExec("UPDATE outbox_events").
		WithArgs([]int64{1, 2}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	writer := &fakeWriter{}
	var published []string
	p := NewPublisher(mock, NewRepository(), writer, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{
		OnPublish: func(eventType string) { published = append(published, eventType) },
	})

	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, writer.msgs, 2)
	assert.Equal(t, TopicAppointmentBooked, writer.msgs[0].Topic)
	assert.Equal(t, "appt-1", string(writer.msgs[0].Key))
	meta := kafkax.ExtractEventMeta(writer.msgs[1])
	assert.Equal(t, "evt-2", meta.EventID)
	assert.Equal(t, "biz-1", meta.BusinessID)
	assert.Equal(t, []string{TopicAppointmentBooked, TopicAppointmentCancelled}, published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatch_KafkaFailureLeavesRowsPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow(int64(7), "evt-7", "appointment", "appt-9", "biz-1", TopicAppointmentBooked, []byte(`{}`), "", "", time.Now()))
	mock.ExpectRollback()

	writer := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewPublisher(mock, NewRepository(), writer, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 10})

	_, err = p.PublishBatch(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatch_EmptyCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").WithArgs(50).WillReturnRows(pgxmock.NewRows(outboxColumns))
	mock.ExpectCommit()

	p := NewPublisher(mock, NewRepository(), &fakeWriter{}, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{})
	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
