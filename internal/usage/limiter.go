package usage

import (
	"context"
	"time"

	"review-responder/internal/common/config"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/common/metrics"
)

const (
	windowDaily   = "daily"
	windowMonthly = "monthly"

	// Counters outlive their window by a day so a clock-skewed reader
	// never sees a key vanish mid-check.
	dailyTTL   = 48 * time.Hour
	monthlyTTL = 32 * 24 * time.Hour
)

// Limiter enforces the per-profile generation quotas. A zero limit disables
// the corresponding window.
type Limiter struct {
	store  CounterStore
	config config.UsageConfig
	logger logger.Logger
	now    func() time.Time
}

func NewLimiter(store CounterStore, cfg config.UsageConfig, log logger.Logger) *Limiter {
	return &Limiter{
		store:  store,
		config: cfg,
		logger: log,
		now:    time.Now,
	}
}

// Allow reports whether the profile may run another generation. Counter
// lookups that fail are surfaced as retryable errors rather than silently
// letting traffic through.
func (l *Limiter) Allow(ctx context.Context, profileID string) error {
	now := l.now()

	if l.config.DailyLimit > 0 {
		count, err := l.store.Get(ctx, DailyKey(profileID, now))
		if err != nil {
			return errors.NewUsageCheckFailedError(err)
		}
		if count >= int64(l.config.DailyLimit) {
			return l.reject(profileID, windowDaily, int64(l.config.DailyLimit), count)
		}
	}

	if l.config.MonthlyLimit > 0 {
		count, err := l.store.Get(ctx, MonthlyKey(profileID, now))
		if err != nil {
			return errors.NewUsageCheckFailedError(err)
		}
		if count >= int64(l.config.MonthlyLimit) {
			return l.reject(profileID, windowMonthly, int64(l.config.MonthlyLimit), count)
		}
	}

	return nil
}

// Record charges one generation against both windows. Called only after the
// provider round trip succeeds, so rejected or failed requests are free.
func (l *Limiter) Record(ctx context.Context, profileID string) error {
	now := l.now()

	if _, err := l.store.Increment(ctx, DailyKey(profileID, now), dailyTTL); err != nil {
		return errors.NewUsageCheckFailedError(err)
	}
	if _, err := l.store.Increment(ctx, MonthlyKey(profileID, now), monthlyTTL); err != nil {
		return errors.NewUsageCheckFailedError(err)
	}
	return nil
}

func (l *Limiter) reject(profileID, window string, limit, count int64) error {
	metrics.UsageLimitRejections.WithLabelValues(window).Inc()
	l.logger.Warn("generation quota exhausted", map[string]interface{}{
		"profileId": profileID,
		"window":    window,
		"limit":     limit,
		"count":     count,
	})
	return errors.NewUsageLimitExceededError(window, limit)
}
