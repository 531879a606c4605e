package classifier

import (
	"strings"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/models"
)

const (
	maxTopGenres      = 3
	maxOneLineSummary = 40
)

// Reconcile treats a generated personality as advisory and recomputes every
// field that can be derived from the summary. The tier is always replaced.
func Reconcile(p models.Personality, summary models.AnalysisSummary) models.Personality {
	p.Tier = analysis.ClassifyTier(summary.TotalPlaytimeHours, summary.TotalGames)

	genres := make([]string, 0, maxTopGenres)
	for _, g := range p.TopGenres {
		g = strings.TrimSpace(g)
		if g != "" && len(genres) < maxTopGenres {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		genres = analysis.TopGenres(summary.GenreDistribution, maxTopGenres)
	}
	p.TopGenres = genres

	p.GamerType = strings.TrimSpace(p.GamerType)
	if p.GamerType == "" {
		p.GamerType = defaultArchetype.title
	}
	if strings.TrimSpace(p.GamerTypeEnglish) == "" {
		p.GamerTypeEnglish = p.GamerType
	}
	if strings.TrimSpace(p.GamerTypeEmoji) == "" {
		p.GamerTypeEmoji = defaultArchetype.emoji
	}
	if strings.TrimSpace(p.PortraitPrompt) == "" {
		p.PortraitPrompt = portraitPrompt(p.GamerTypeEnglish, defaultArchetype.visuals)
	}
	p.OneLineSummary = truncateRunes(strings.TrimSpace(p.OneLineSummary), maxOneLineSummary)

	return p
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
