package classifier

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/metrics"
	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/steam"
)

const (
	maxRecommendations = 8
	// owned names listed in the prompt; the post-filter checks all of them
	maxPromptOwnedNames = 80
)

var ErrRecommendationsUnavailable = errors.New("recommendations unavailable")

// StoreSearcher is satisfied by *steam.Client
type StoreSearcher interface {
	SearchStore(ctx context.Context, term string) (steam.StoreHit, bool, error)
}

type Recommender interface {
	Recommend(ctx context.Context, summary models.AnalysisSummary, p models.Personality) ([]models.Recommendation, error)
}

type GPTRecommender struct {
	client   ChatClient
	opts     Options
	searcher StoreSearcher
	logger   *zap.Logger
}

// NewGPTRecommender creates a recommender. searcher may be nil, in which case
// the model's store URLs are kept as given.
func NewGPTRecommender(client ChatClient, opts Options, searcher StoreSearcher, logger *zap.Logger) *GPTRecommender {
	return &GPTRecommender{
		client:   client,
		opts:     opts,
		searcher: searcher,
		logger:   logger,
	}
}

type recommendationList struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

func (r *GPTRecommender) Recommend(ctx context.Context, summary models.AnalysisSummary, p models.Personality) ([]models.Recommendation, error) {
	owned := summary.AllGameNames[:min(len(summary.AllGameNames), maxPromptOwnedNames)]

	var list recommendationList
	if err := complete(ctx, r.client, r.opts, recommendSystemPrompt, recommendUserPrompt(summary, p, owned), &list); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Error("Failed to get GPT recommendations", zap.Error(err))
		metrics.LLMFallbacks.WithLabelValues("recommendations").Inc()
		return nil, errors.Join(ErrRecommendationsUnavailable, err)
	}

	recs := FilterRecommendations(list.Recommendations, summary)
	if r.searcher != nil {
		recs = r.resolve(ctx, recs, summary)
	}
	return recs, nil
}

// resolve replaces model-made store URLs with the storefront's own answer and
// drops titles that turn out to be owned
func (r *GPTRecommender) resolve(ctx context.Context, recs []models.Recommendation, summary models.AnalysisSummary) []models.Recommendation {
	ownedNames, ownedIDs := ownedIndex(summary)
	out := make([]models.Recommendation, 0, len(recs))

	for _, rec := range recs {
		hit, found, err := r.searcher.SearchStore(ctx, rec.Name)
		if err != nil {
			r.logger.Debug("Store search failed, keeping model URL",
				zap.String("name", rec.Name),
				zap.Error(err))
			out = append(out, rec)
			continue
		}
		if !found {
			out = append(out, rec)
			continue
		}
		if ownedIDs[hit.AppID] || ownedNames[normalizeName(hit.Name)] {
			r.logger.Debug("Dropping owned recommendation", zap.String("name", hit.Name))
			continue
		}
		rec.AppID = hit.AppID
		rec.SteamURL = hit.URL
		out = append(out, rec)
	}
	return out
}

// FilterRecommendations drops empty, duplicate and already-owned titles and
// caps the list.
func FilterRecommendations(recs []models.Recommendation, summary models.AnalysisSummary) []models.Recommendation {
	ownedNames, _ := ownedIndex(summary)
	seen := make(map[string]bool)
	out := make([]models.Recommendation, 0, min(len(recs), maxRecommendations))

	for _, rec := range recs {
		rec.Name = strings.TrimSpace(rec.Name)
		key := normalizeName(rec.Name)
		if key == "" || seen[key] || ownedNames[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

func ownedIndex(summary models.AnalysisSummary) (map[string]bool, map[int]bool) {
	names := make(map[string]bool, len(summary.AllGameNames)+len(summary.TopGames))
	ids := make(map[int]bool, len(summary.TopGames))
	for _, n := range summary.AllGameNames {
		names[normalizeName(n)] = true
	}
	for _, g := range summary.TopGames {
		names[normalizeName(g.Name)] = true
		ids[g.AppID] = true
	}
	delete(names, "")
	return names, ids
}

// normalizeName folds case and drops punctuation so "DOOM Eternal™" and
// "Doom Eternal" compare equal
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
