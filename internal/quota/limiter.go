// Package quota enforces the global per-day chat request budget.
//
// The counter lives in Redis under a UTC date key and expires at the end of
// the day, so a new day starts from zero without any reset job. The grant
// path is a single Lua script, which Redis executes atomically; there is no
// read-then-write window for concurrent requests to race through.
package quota

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "chat:quota:"

// consumeScript increments today's counter only while it is below the limit.
// Returns 1 when the request is granted, 0 when the budget is exhausted.
var consumeScript = goredis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return 1
`)

type Status struct {
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
	Exceeded  bool `json:"isExceeded"`
}

// RedisClient is the narrow slice of go-redis used by the limiter.
// *goredis.Client satisfies it.
type RedisClient interface {
	goredis.Scripter
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// LimitFunc reports the budget ceiling in effect at the moment of the call,
// so the ceiling can be retuned at runtime without a restart.
type LimitFunc func(ctx context.Context) int

// FixedLimit returns a LimitFunc pinned to a constant ceiling.
func FixedLimit(n int) LimitFunc {
	return func(context.Context) int { return n }
}

type Limiter struct {
	redis RedisClient
	limit LimitFunc
	now   func() time.Time
}

func NewLimiter(redis RedisClient, limit LimitFunc) *Limiter {
	return &Limiter{redis: redis, limit: limit, now: time.Now}
}

// TryConsume atomically grants one request from today's budget. A false
// result with a nil error means the quota is exhausted; a non-nil error is a
// storage failure and is reported separately so callers can decide how to
// degrade (this service fails closed).
func (l *Limiter) TryConsume(ctx context.Context) (bool, error) {
	day := l.now().UTC()
	granted, err := consumeScript.Run(ctx, l.redis,
		[]string{l.dayKey(day)},
		l.limit(ctx), nextMidnight(day).Unix(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("quota consume: %w", err)
	}
	return granted == 1, nil
}

// Peek reports the current budget without consuming it. Best-effort: the
// value may be stale by the time the caller acts on it.
func (l *Limiter) Peek(ctx context.Context) (Status, error) {
	count, err := l.redis.Get(ctx, l.dayKey(l.now().UTC())).Int()
	if err != nil && err != goredis.Nil {
		return Status{}, fmt.Errorf("quota peek: %w", err)
	}

	limit := l.limit(ctx)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Remaining: remaining,
		Total:     limit,
		Exceeded:  count >= limit,
	}, nil
}

func (l *Limiter) dayKey(t time.Time) string {
	return keyPrefix + t.Format("2006-01-02")
}

// nextMidnight is the EXPIREAT target: the first instant of the following
// UTC day, so the counter covers every second of today including the last.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
