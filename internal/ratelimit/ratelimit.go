// Package ratelimit implements a sliding window request governor. Call sites
// pick a Rule; the Store decides where the window lives.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Rule allows MaxRequests within any trailing Window.
type Rule struct {
	MaxRequests int
	Window      time.Duration
}

// Rules used by the HTTP routes.
var (
	CommentCreate = Rule{MaxRequests: 10, Window: time.Minute}
	CommentEdit   = Rule{MaxRequests: 5, Window: 5 * time.Minute}
	CommentLike   = Rule{MaxRequests: 30, Window: time.Minute}
	PostCreate    = Rule{MaxRequests: 10, Window: time.Minute}
	PostEdit      = Rule{MaxRequests: 3, Window: 5 * time.Minute}
	PostLike      = Rule{MaxRequests: 20, Window: time.Minute}
)

// Store records a request under key if the window still has room.
type Store interface {
	Take(ctx context.Context, key string, now time.Time, rule Rule) (bool, error)
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter struct {
	store Store
	now   func() time.Time
	log   *logrus.Entry
}

func NewLimiter(store Store, log *logrus.Entry) *Limiter {
	return &Limiter{store: store, now: time.Now, log: log}
}

// WithClock replaces the time source, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow consults the store for (userID, action). Store errors let the request
// through: an unavailable limiter must not take the write path down with it.
func (l *Limiter) Allow(ctx context.Context, userID uint, action string, rule Rule) Decision {
	key := Key(userID, action)
	ok, err := l.store.Take(ctx, key, l.now(), rule)
	if err != nil {
		l.log.WithError(err).WithField("key", key).Warn("rate limit store failed, allowing request")
		return Decision{Allowed: true}
	}
	if !ok {
		return Decision{RetryAfter: rule.Window}
	}
	return Decision{Allowed: true}
}

// Key is the store key for a user and action.
func Key(userID uint, action string) string {
	return fmt.Sprintf("ratelimit:%s:%d", action, userID)
}
