package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// CachedCatalog is a read-through Redis cache in front of a Catalog. Misses and Redis
// failures fall through to the wrapped catalog; absent documents are not cached.
type CachedCatalog struct {
	next   Catalog
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var (
	_ Catalog       = (*CachedCatalog)(nil)
	_ CatalogWriter = (*CachedCatalog)(nil)
)

func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, prefix: "catalog", logger: logger}
}

func (c *CachedCatalog) businessKey(businessID, kind string) string {
	return c.prefix + ":business:" + businessID + ":" + kind
}

func (c *CachedCatalog) staffKey(staffID, kind string) string {
	return c.prefix + ":staff:" + staffID + ":" + kind
}

func (c *CachedCatalog) serviceKey(serviceID string) string {
	return c.prefix + ":service:" + serviceID
}

func (c *CachedCatalog) ListStaff(ctx context.Context, businessID string) ([]model.StaffMember, error) {
	return readThrough(ctx, c, c.businessKey(businessID, "staff"), func() ([]model.StaffMember, error) {
		return c.next.ListStaff(ctx, businessID)
	})
}

func (c *CachedCatalog) GetStaff(ctx context.Context, staffID string) (model.StaffMember, error) {
	return readThrough(ctx, c, c.staffKey(staffID, "profile"), func() (model.StaffMember, error) {
		return c.next.GetStaff(ctx, staffID)
	})
}

func (c *CachedCatalog) GetBusinessHours(ctx context.Context, businessID string) (model.WeeklyHours, error) {
	return readThrough(ctx, c, c.businessKey(businessID, "hours"), func() (model.WeeklyHours, error) {
		return c.next.GetBusinessHours(ctx, businessID)
	})
}

func (c *CachedCatalog) GetStaffHours(ctx context.Context, staffID string) (model.WeeklyHours, error) {
	return readThrough(ctx, c, c.staffKey(staffID, "hours"), func() (model.WeeklyHours, error) {
		return c.next.GetStaffHours(ctx, staffID)
	})
}

func (c *CachedCatalog) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	return readThrough(ctx, c, c.businessKey(businessID, "services"), func() ([]model.Service, error) {
		return c.next.ListServices(ctx, businessID)
	})
}

func (c *CachedCatalog) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	return readThrough(ctx, c, c.serviceKey(serviceID), func() (model.Service, error) {
		return c.next.GetService(ctx, serviceID)
	})
}

// Invalidate drops the cached documents of a business and, optionally, of some of its
// staff members.
func (c *CachedCatalog) Invalidate(ctx context.Context, businessID string, staffIDs ...string) error {
	keys := []string{
		c.businessKey(businessID, "staff"),
		c.businessKey(businessID, "hours"),
		c.businessKey(businessID, "services"),
	}
	for _, id := range staffIDs {
		keys = append(keys, c.staffKey(id, "hours"), c.staffKey(id, "profile"))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateService drops one cached service document.
func (c *CachedCatalog) InvalidateService(ctx context.Context, serviceID string) error {
	return c.rdb.Del(ctx, c.serviceKey(serviceID)).Err()
}

// Apply writes through to the wrapped catalog and evicts what the batch touched.
// Eviction failures are logged; the TTL bounds staleness.
func (c *CachedCatalog) Apply(ctx context.Context, w CatalogWrite) error {
	writer, ok := c.next.(CatalogWriter)
	if !ok {
		return ErrReadOnlyCatalog
	}
	if err := writer.Apply(ctx, w); err != nil {
		return err
	}
	c.Evict(ctx, w.BusinessID, w.StaffIDs(), w.ServiceIDs())
	return nil
}

// Evict drops every cached document named, logging rather than returning failures.
func (c *CachedCatalog) Evict(ctx context.Context, businessID string, staffIDs, serviceIDs []string) {
	if err := c.Invalidate(ctx, businessID, staffIDs...); err != nil {
		c.logger.Warn("catalog cache eviction failed", "business_id", businessID, "err", err)
	}
	for _, id := range serviceIDs {
		if err := c.InvalidateService(ctx, id); err != nil {
			c.logger.Warn("catalog cache eviction failed", "service_id", id, "err", err)
		}
	}
}

func readThrough[T any](ctx context.Context, c *CachedCatalog, key string, fetch func() (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return v, nil
		}
		c.logger.Warn("catalog cache entry unreadable, refetching", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", "key", key, "err", err)
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	if payload, jerr := json.Marshal(v); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.logger.Warn("catalog cache write failed", "key", key, "err", serr)
		}
	}
	return v, nil
}
