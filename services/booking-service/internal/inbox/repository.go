// Package inbox remembers consumed event ids so redelivered Kafka messages are handled
// once.
package inbox

import (
	"context"

	"github.com/md-rashed-zaman/bookingwidget/libs/db"
)

type Repository struct {
	db db.DBTX
}

func NewRepository(pool db.DBTX) *Repository {
	return &Repository{db: pool}
}

// Record returns false when eventID was already recorded.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// Forget removes eventID so a later redelivery is handled again.
func (r *Repository) Forget(ctx context.Context, eventID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}
