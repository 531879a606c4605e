package analysis

import "github.com/xaenox/gamer-card/internal/models"

type tierRule struct {
	minHours float64
	minGames int
	tier     models.Tier
}

// Evaluated top-down; both thresholds of a row must hold.
var tierRules = []tierRule{
	{5000, 100, models.TierS},
	{2000, 50, models.TierA},
	{500, 20, models.TierB},
	{100, 10, models.TierC},
}

// ClassifyTier maps total playtime and library size to a tier. It is the only
// source of truth for a tier; values suggested by generative services are
// overwritten with it.
func ClassifyTier(totalHours float64, totalGames int) models.Tier {
	for _, r := range tierRules {
		if totalHours >= r.minHours && totalGames >= r.minGames {
			return r.tier
		}
	}
	return models.TierD
}

// TierThresholds renders the tier table for prompts and help text
func TierThresholds() string {
	return "S: 5000h+/100 games+, A: 2000h+/50 games+, B: 500h+/20 games+, C: 100h+/10 games+, D: otherwise"
}
