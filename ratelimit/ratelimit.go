// Package ratelimit implements per-client fixed window admission control.
//
// Each logical endpoint owns a Bucket with its own limit and window, so the
// quotas of different endpoints never share a budget. Counters live in a
// Store; the in-process MemoryStore serves a single instance while the redis
// and postgres adapters coordinate several instances.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"moviegate/errs"
)

// Bucket is an independently configured quota.
type Bucket struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one check-and-consume.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store consumes one token for key inside the current window. The increment
// and the comparison against limit must be atomic for a given key.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// QuotaError is returned alongside a rejected Decision.
type QuotaError struct {
	Bucket     string
	Limit      int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %d requests per window, retry in %ds",
		e.Bucket, e.Limit, RetryAfterSeconds(e.RetryAfter))
}

// AppError converts the rejection into an application error.
func (e *QuotaError) AppError() *errs.Error {
	return errs.Errorf(errs.ERATELIMITED,
		"Too many requests, please try again in %d seconds.", RetryAfterSeconds(e.RetryAfter))
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type Limiter struct {
	store Store
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// CheckAndConsume spends one token of bucket for clientID. A rejected request
// returns the Decision together with a *QuotaError.
func (l *Limiter) CheckAndConsume(ctx context.Context, clientID string, bucket Bucket) (Decision, error) {
	if bucket.Limit <= 0 || bucket.Window <= 0 {
		return Decision{}, fmt.Errorf("ratelimit: bucket %q must have positive limit and window", bucket.Name)
	}

	dec, err := l.store.Take(ctx, Key(bucket.Name, clientID), bucket.Limit, bucket.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: take %s: %w", bucket.Name, err)
	}
	if !dec.Allowed {
		return dec, &QuotaError{Bucket: bucket.Name, Limit: bucket.Limit, RetryAfter: dec.RetryAfter}
	}
	return dec, nil
}

// Key builds the counter key for a client inside a bucket.
func Key(bucket, clientID string) string {
	clientID = strings.ToLower(strings.TrimSpace(clientID))
	if clientID == "" {
		clientID = "unknown"
	}
	return "ratelimit:" + bucket + ":" + clientID
}

// WindowStart truncates now to the start of its fixed window.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// Decide builds a Decision from the counter value observed after the
// increment. Used by every Store so the window arithmetic stays identical.
func Decide(count int64, limit int, windowStart time.Time, window time.Duration, now time.Time) Decision {
	resetAt := windowStart.Add(window)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	dec := Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !dec.Allowed {
		dec.RetryAfter = resetAt.Sub(now)
	}
	return dec
}
