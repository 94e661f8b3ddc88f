package rate

import "errors"

var (
	// ErrRateLimited is returned when a bucket's budget for the current window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrUnknownBucket is returned for a bucket with no configured limit.
	ErrUnknownBucket = errors.New("unknown rate limit bucket")
)
