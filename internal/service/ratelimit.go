package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

// Limiter enforces per-credential, per-endpoint fixed-window quotas. All
// counter state lives in the store; the check-then-increment is a single
// atomic upsert there, so concurrent requests sharing a window cannot
// under-enforce the limit. A quota of zero or less means unlimited for that
// window.
type Limiter struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time // injectable for window-rollover tests
}

// NewLimiter builds a Limiter backed by the given counter store.
func NewLimiter(st *store.Store, logger *slog.Logger) *Limiter {
	return &Limiter{store: st, logger: logger, now: time.Now}
}

// CheckAndConsume consumes one unit of quota for the credential on the given
// endpoint. The minute window is evaluated first; the day window only if the
// minute window passes. The request that tips a count past its limit is
// itself rejected, and that rejection still counts against the window.
//
// On success the returned info describes the tightest applicable window
// (fewest remaining; minute wins ties), or nil when neither window carries a
// limit. On rejection the error is a RATE_LIMIT_EXCEEDED *model.APIError
// whose reset_at is the end of the violated window.
func (l *Limiter) CheckAndConsume(ctx context.Context, cred *model.Credential, endpoint string) (*model.RateLimitInfo, *model.APIError) {
	now := l.now().UTC()

	minuteInfo, apiErr := l.consumeWindow(ctx, cred.ID, endpoint, model.WindowMinute, cred.RateLimitPerMinute, now)
	if apiErr != nil {
		return nil, apiErr
	}
	dayInfo, apiErr := l.consumeWindow(ctx, cred.ID, endpoint, model.WindowDay, cred.RateLimitPerDay, now)
	if apiErr != nil {
		return nil, apiErr
	}

	switch {
	case minuteInfo == nil:
		return dayInfo, nil
	case dayInfo == nil:
		return minuteInfo, nil
	case dayInfo.Remaining < minuteInfo.Remaining:
		return dayInfo, nil
	default:
		return minuteInfo, nil
	}
}

// consumeWindow increments one window's counter and compares the
// post-increment count against the limit. Returns (nil, nil) when the window
// carries no limit.
func (l *Limiter) consumeWindow(ctx context.Context, credentialID, endpoint, windowType string, limit int, now time.Time) (*model.RateLimitInfo, *model.APIError) {
	if limit <= 0 {
		return nil, nil
	}

	windowStart := model.WindowStart(windowType, now)
	resetAt := model.WindowEnd(windowType, now)

	// The client going away must not leave the two windows half-counted, so
	// the increment runs detached from request cancellation.
	count, err := l.store.IncrementCounter(context.WithoutCancel(ctx), credentialID, endpoint, windowType, windowStart)
	if err != nil {
		l.logger.Error("rate counter increment failed",
			"credential_id", credentialID, "endpoint", endpoint, "window", windowType, "error", err)
		return nil, model.ErrInternal()
	}

	if count > int64(limit) {
		return nil, model.ErrRateLimited(limit, resetAt)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &model.RateLimitInfo{Limit: limit, Remaining: remaining, ResetAt: resetAt}, nil
}
