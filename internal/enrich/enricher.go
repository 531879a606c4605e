package enrich

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/metrics"
	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/steam"
	"github.com/xaenox/gamer-card/internal/storage"
)

// DefaultDelay keeps sequential store lookups under the storefront rate limit
const DefaultDelay = 300 * time.Millisecond

// MetadataSource is satisfied by *steam.Client
type MetadataSource interface {
	AppDetails(ctx context.Context, appID int) (models.AppDetails, bool, error)
}

// ProgressFunc is called once per processed item with (done, total)
type ProgressFunc func(done, total int)

type Enricher struct {
	source MetadataSource
	cache  storage.MetadataCache
	delay  time.Duration
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates an Enricher. cache may be nil to disable memoisation; a
// negative delay disables pacing.
func New(source MetadataSource, cache storage.MetadataCache, delay time.Duration, logger *zap.Logger) *Enricher {
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Enricher{
		source: source,
		cache:  cache,
		delay:  delay,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Enrich looks up store metadata for the first limit items. Items whose
// lookup fails get empty metadata; the only error returned is the context's.
func (e *Enricher) Enrich(ctx context.Context, items []models.OwnedItem, limit int, onProgress ProgressFunc) ([]models.EnrichedItem, error) {
	total := batchSize(len(items), limit)
	out := make([]models.EnrichedItem, 0, total)

	for p, item := range e.Sequence(ctx, items, limit) {
		out = append(out, item)
		if onProgress != nil {
			onProgress(p.Done, p.Total)
		}
	}

	if len(out) < total {
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Sequence yields enriched items one at a time, in input order, together with
// the progress after each one. Iteration stops early when ctx is cancelled.
// The delay is only inserted before a lookup that goes to the store, so a run
// served mostly from the cache finishes faster than delay*limit.
func (e *Enricher) Sequence(ctx context.Context, items []models.OwnedItem, limit int) iter.Seq2[models.Progress, models.EnrichedItem] {
	return func(yield func(models.Progress, models.EnrichedItem) bool) {
		total := batchSize(len(items), limit)
		fetched := false

		for i, item := range items[:total] {
			if ctx.Err() != nil {
				return
			}

			details, hit := e.cached(ctx, item.AppID)
			if !hit {
				if fetched && e.delay > 0 {
					if err := e.sleep(ctx, e.delay); err != nil {
						return
					}
				}
				details = e.fetch(ctx, item.AppID)
				fetched = true
			}

			progress := models.Progress{Stage: models.StageEnrich, Done: i + 1, Total: total}
			if !yield(progress, newEnrichedItem(item, details)) {
				return
			}
		}
	}
}

func (e *Enricher) cached(ctx context.Context, appID int) (models.AppDetails, bool) {
	if e.cache == nil {
		return models.AppDetails{}, false
	}

	entry, ok, err := e.cache.Get(ctx, appID)
	if err != nil {
		e.logger.Warn("Metadata cache read failed", zap.Int("appid", appID), zap.Error(err))
		return models.AppDetails{}, false
	}
	if !ok {
		metrics.MetadataCacheMisses.Inc()
		return models.AppDetails{}, false
	}

	metrics.MetadataCacheHits.Inc()
	if !entry.Found {
		metrics.MetadataUnavailable.Inc()
	}
	return entry.Details, true
}

// fetch never fails: a lookup error or a not-found answer yields empty details
func (e *Enricher) fetch(ctx context.Context, appID int) models.AppDetails {
	details, found, err := e.source.AppDetails(ctx, appID)
	if err != nil {
		metrics.MetadataUnavailable.Inc()
		e.logger.Warn("Continuing without store metadata",
			zap.Int("appid", appID),
			zap.Error(fmt.Errorf("%w: %w", steam.ErrMetadataUnavailable, err)))
		return models.AppDetails{}
	}

	if !found {
		metrics.MetadataUnavailable.Inc()
		e.logger.Debug("Store has no metadata for app", zap.Int("appid", appID))
		details = models.AppDetails{}
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, appID, storage.CachedDetails{Details: details, Found: found}); err != nil {
			e.logger.Warn("Metadata cache write failed", zap.Int("appid", appID), zap.Error(err))
		}
	}
	return details
}

func newEnrichedItem(item models.OwnedItem, details models.AppDetails) models.EnrichedItem {
	name := item.Name
	if name == "" {
		name = fmt.Sprintf("Unknown (%d)", item.AppID)
	}

	return models.EnrichedItem{
		AppID:               item.AppID,
		Name:                name,
		PlaytimeHours:       analysis.MinutesToHours(item.PlaytimeForever),
		Playtime2WeeksHours: analysis.MinutesToHours(item.Playtime2Weeks),
		Genres:              orEmpty(details.Genres),
		Categories:          orEmpty(details.Categories),
		ShortDescription:    details.ShortDescription,
	}
}

func batchSize(n, limit int) int {
	if limit <= 0 {
		limit = analysis.MaxTopGames
	}
	return min(n, limit)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
