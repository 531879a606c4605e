package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/card"
	"github.com/xaenox/gamer-card/internal/classifier"
	"github.com/xaenox/gamer-card/internal/enrich"
	"github.com/xaenox/gamer-card/internal/metrics"
	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/steam"
)

// Library resolves profiles and lists owned games; satisfied by *steam.Client
type Library interface {
	ResolveID(ctx context.Context, reference string) (string, error)
	OwnedGames(ctx context.Context, steamID string) ([]models.OwnedItem, error)
}

type Enricher interface {
	Enrich(ctx context.Context, items []models.OwnedItem, limit int, onProgress enrich.ProgressFunc) ([]models.EnrichedItem, error)
}

type PortraitRenderer interface {
	Portrait(ctx context.Context, prompt string) (image.Image, error)
}

// Observer receives progress updates. It is called synchronously from the
// run's goroutine.
type Observer func(models.Progress)

type Runner struct {
	library     Library
	enricher    Enricher
	classifier  classifier.Classifier
	recommender classifier.Recommender
	renderer    PortraitRenderer
	enrichLimit int
	logger      *zap.Logger
}

type Deps struct {
	Library     Library
	Enricher    Enricher
	Classifier  classifier.Classifier
	Recommender classifier.Recommender
	Renderer    PortraitRenderer
	EnrichLimit int
}

func NewRunner(deps Deps, logger *zap.Logger) *Runner {
	limit := deps.EnrichLimit
	if limit <= 0 {
		limit = analysis.MaxTopGames
	}
	return &Runner{
		library:     deps.Library,
		enricher:    deps.Enricher,
		classifier:  deps.Classifier,
		recommender: deps.Recommender,
		renderer:    deps.Renderer,
		enrichLimit: limit,
		logger:      logger,
	}
}

// Run executes the whole analysis for one profile reference. The steps run in
// order; the first failure of resolve, library or enrich aborts the run and is
// returned as is. Recommendation and portrait failures degrade instead.
func (r *Runner) Run(ctx context.Context, reference string, observe Observer) (*models.Analysis, error) {
	if observe == nil {
		observe = func(models.Progress) {}
	}

	result, err := r.run(ctx, reference, observe)
	metrics.AnalysisRuns.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		r.logger.Info("Analysis failed", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}
	observe(models.Progress{Stage: models.StageDone})
	return result, nil
}

func (r *Runner) run(ctx context.Context, reference string, observe Observer) (*models.Analysis, error) {
	logger := r.logger.With(zap.String("reference", reference))

	stage := r.stage(observe, models.StageResolve)
	steamID, err := r.library.ResolveID(ctx, reference)
	stage()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("steam_id", steamID))

	stage = r.stage(observe, models.StageLibrary)
	games, err := r.library.OwnedGames(ctx, steamID)
	stage()
	if err != nil {
		return nil, err
	}
	logger.Info("Library loaded", zap.Int("games", len(games)))

	stage = r.stage(observe, models.StageEnrich)
	enriched, err := r.enricher.Enrich(ctx, games, r.enrichLimit, func(done, total int) {
		observe(models.Progress{Stage: models.StageEnrich, Done: done, Total: total})
	})
	stage()
	if err != nil {
		return nil, fmt.Errorf("enrichment interrupted: %w", err)
	}

	summary := analysis.Summarize(enriched, games)
	tier := analysis.ClassifyTier(summary.TotalPlaytimeHours, summary.TotalGames)

	stage = r.stage(observe, models.StageClassify)
	personality, err := r.classifier.Classify(ctx, summary)
	stage()
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	// every collaborator answer is advisory
	personality = classifier.Reconcile(personality, summary)
	logger.Info("Personality classified",
		zap.String("gamer_type", personality.GamerType),
		zap.String("tier", string(tier)))

	stage = r.stage(observe, models.StageRecommend)
	recs, err := r.recommender.Recommend(ctx, summary, personality)
	stage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Continuing without recommendations", zap.Error(err))
		recs = []models.Recommendation{}
	}

	stage = r.stage(observe, models.StagePortrait)
	portrait, fallback := r.portrait(ctx, personality, tier, logger)
	stage()
	if portrait == nil {
		return nil, errors.New("failed to render fallback portrait")
	}

	stage = r.stage(observe, models.StageCard)
	cardImage, err := card.Compose(personality, summary, portrait, tier)
	if err != nil {
		stage()
		return nil, fmt.Errorf("failed to compose card: %w", err)
	}
	cardPNG, err := card.EncodePNG(cardImage)
	if err != nil {
		stage()
		return nil, err
	}
	portraitPNG, err := card.EncodePNG(portrait)
	stage()
	if err != nil {
		return nil, err
	}

	return &models.Analysis{
		ID:               uuid.New(),
		SteamID:          steamID,
		CreatedAt:        time.Now().UTC(),
		Summary:          summary,
		Personality:      personality,
		Recommendations:  recs,
		PortraitFallback: fallback,
		Portrait:         portraitPNG,
		Card:             cardPNG,
	}, nil
}

// portrait returns the generated portrait, or the tier fallback and true
func (r *Runner) portrait(ctx context.Context, p models.Personality, tier models.Tier, logger *zap.Logger) (image.Image, bool) {
	if r.renderer != nil {
		img, err := r.renderer.Portrait(ctx, p.PortraitPrompt)
		if err == nil {
			return img, false
		}
		logger.Warn("Portrait generation failed, using fallback", zap.Error(err))
		metrics.LLMFallbacks.WithLabelValues("portrait").Inc()
	}

	img, err := card.FallbackPortrait(tier)
	if err != nil {
		logger.Error("Failed to draw fallback portrait", zap.Error(err))
		return nil, true
	}
	return img, true
}

// stage reports the start of s and returns a func that records its duration
func (r *Runner) stage(observe Observer, s models.Stage) func() {
	observe(models.Progress{Stage: s})
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, steam.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, steam.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, steam.ErrLibraryUnavailable):
		return "library_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
