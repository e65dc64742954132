package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SuggestionEvictor is implemented by usecase.SuggestionCache.
type SuggestionEvictor interface {
	EvictOlderThan(cutoff time.Time) []string
}

// SuggestionJanitor drops suggestion sets older than TTL. Sets with a send in
// flight are left to the next run.
type SuggestionJanitor struct {
	cache  SuggestionEvictor
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewSuggestionJanitor(cache SuggestionEvictor, ttl time.Duration, logger *slog.Logger) *SuggestionJanitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestionJanitor{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule registers Sweep on c. schedule is a standard cron expression or a
// descriptor such as "@every 10m".
func (j *SuggestionJanitor) Schedule(c *cron.Cron, schedule string) error {
	if _, err := c.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return fmt.Errorf("schedule suggestion janitor %q: %w", schedule, err)
	}
	j.logger.Info("suggestion janitor scheduled", "ttl", j.ttl.String(), "schedule", schedule)
	return nil
}

// Sweep runs one eviction pass and returns the evicted lead ids.
func (j *SuggestionJanitor) Sweep() []string {
	evicted := j.cache.EvictOlderThan(j.now().Add(-j.ttl))
	if len(evicted) > 0 {
		j.logger.Info("expired suggestion sets evicted", "count", len(evicted))
	}
	return evicted
}
