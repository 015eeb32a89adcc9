package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const patientListKey = "patientdesk:patients:list"

// PatientList caches the rendered GET /patients response body. The directory
// listing is public and read-heavy; every patient mutation invalidates it.
// A nil *PatientList is a valid no-op cache.
type PatientList struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewPatientList(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *PatientList {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PatientList{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *PatientList) Get(ctx context.Context) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	body, err := c.rdb.Get(ctx, patientListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("patient list cache read failed", "err", err)
		}
		return nil, false
	}
	return body, true
}

func (c *PatientList) Set(ctx context.Context, body []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, patientListKey, body, c.ttl).Err(); err != nil {
		c.logger.Warn("patient list cache write failed", "err", err)
	}
}

func (c *PatientList) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, patientListKey).Err(); err != nil {
		c.logger.Warn("patient list cache invalidation failed", "err", err)
	}
}

// ReadyCheck pings redis for /readyz.
func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
