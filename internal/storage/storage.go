package storage

import (
	"context"
	"time"

	"github.com/xaenox/gamer-card/internal/models"
)

// DefaultMetadataTTL bounds how long store metadata is reused
const DefaultMetadataTTL = time.Hour

// CachedDetails is a memoised metadata lookup. Found=false records that the
// store has no data for the app, so the lookup is not repeated.
type CachedDetails struct {
	Details models.AppDetails
	Found   bool
}

// MetadataCache memoises app metadata by app id. Implementations must be safe
// for concurrent use and must not return entries older than their TTL.
type MetadataCache interface {
	Get(ctx context.Context, appID int) (CachedDetails, bool, error)
	Put(ctx context.Context, appID int, entry CachedDetails) error
	// Prune drops expired entries and reports how many were removed
	Prune(ctx context.Context) (int, error)
	Close() error
}
