package supervisor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultJanitorSchedule = "@every 10m"

// ResultPruner is satisfied by *storage.ResultStore
type ResultPruner interface {
	Prune() int
}

// CachePruner is satisfied by the metadata caches in internal/storage
type CachePruner interface {
	Prune(ctx context.Context) (int, error)
}

// Janitor periodically drops expired analyses and metadata cache entries.
type Janitor struct {
	schedule string
	results  ResultPruner
	cache    CachePruner
	logger   *zap.Logger
}

func NewJanitor(schedule string, results ResultPruner, cache CachePruner, logger *zap.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	return &Janitor{
		schedule: schedule,
		results:  results,
		cache:    cache,
		logger:   logger,
	}
}

func (j *Janitor) Serve(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, func() { j.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.logger.Info("Janitor started", zap.String("schedule", j.schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// Sweep prunes both stores once
func (j *Janitor) Sweep(ctx context.Context) {
	var results, entries int
	if j.results != nil {
		results = j.results.Prune()
	}
	if j.cache != nil {
		n, err := j.cache.Prune(ctx)
		if err != nil {
			j.logger.Warn("Failed to prune metadata cache", zap.Error(err))
		}
		entries = n
	}
	if results > 0 || entries > 0 {
		j.logger.Info("Expired entries pruned",
			zap.Int("analyses", results),
			zap.Int("metadata", entries))
	}
}

func (j *Janitor) String() string {
	return "janitor"
}
