package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket names a family of routes that share one per-IP budget.
type Bucket string

const (
	BucketAPI           Bucket = "api"
	BucketAuth          Bucket = "auth"
	BucketRegistration  Bucket = "registration"
	BucketPasswordReset Bucket = "passwordReset"
	BucketUpload        Bucket = "upload"
	BucketOAuth         Bucket = "oauth"
)

// DefaultWindow is the fixed window length for every bucket.
const DefaultWindow = time.Minute

// Config holds rate limiter tuning parameters.
type Config struct {
	Window time.Duration
	Limits map[Bucket]int
}

// DefaultLimits returns the per-window request budgets.
func DefaultLimits() map[Bucket]int {
	return map[Bucket]int{
		BucketAPI:           100,
		BucketAuth:          5,
		BucketRegistration:  3,
		BucketPasswordReset: 2,
		BucketUpload:        5,
		BucketOAuth:         10,
	}
}

// Decision is the outcome of one [Limiter.Allow] call.
type Decision struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces per-bucket, per-IP request budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// New creates a rate [Limiter] backed by the given Redis client. Missing
// window or limits fall back to [DefaultWindow] and [DefaultLimits].
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if len(cfg.Limits) == 0 {
		cfg.Limits = DefaultLimits()
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// Limit returns the configured budget for bucket.
func (l *Limiter) Limit(bucket Bucket) (int, bool) {
	n, ok := l.config.Limits[bucket]
	return n, ok
}

// Allow counts one request from ip against bucket. It returns ErrRateLimited
// once the window's budget is exceeded; the returned Decision is valid in
// that case too.
func (l *Limiter) Allow(ctx context.Context, bucket Bucket, ip string) (Decision, error) {
	limit, ok := l.config.Limits[bucket]
	if !ok || limit <= 0 {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}

	windowStart := l.now().Truncate(l.config.Window)
	decision := Decision{
		Limit:   limit,
		ResetAt: windowStart.Add(l.config.Window),
	}

	count, err := l.incrementWithTTL(ctx, Key(bucket, ip, windowStart), l.config.Window)
	if err != nil {
		return decision, err
	}

	if count > int64(limit) {
		return decision, ErrRateLimited
	}
	decision.Remaining = limit - int(count)
	return decision, nil
}

// Key returns the counter key for bucket and ip in the window starting at windowStart.
func Key(bucket Bucket, ip string, windowStart time.Time) string {
	if ip == "" {
		ip = "unknown"
	}
	return "rate_limit:" + string(bucket) + ":" + ip + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
