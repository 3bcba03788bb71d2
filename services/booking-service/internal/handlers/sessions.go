package handlers

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/availability"
)

// Sessions keeps one availability.Tracker per widget session. The least recently used
// sessions are forgotten once size is reached.
type Sessions struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *availability.Tracker]
}

func NewSessions(size int) (*Sessions, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, *availability.Tracker](size)
	if err != nil {
		return nil, err
	}
	return &Sessions{cache: cache}, nil
}

func (s *Sessions) tracker(id string) *availability.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.cache.Get(id); ok {
		return t
	}
	t := &availability.Tracker{}
	s.cache.Add(id, t)
	return t
}

// Begin starts a computation for session id. Requests without a session never
// supersede each other.
func (s *Sessions) Begin(ctx context.Context, id string) (context.Context, *availability.Ticket) {
	if s == nil || id == "" {
		return (&availability.Tracker{}).Begin(ctx)
	}
	return s.tracker(id).Begin(ctx)
}

func (s *Sessions) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}
