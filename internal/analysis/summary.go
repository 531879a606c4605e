package analysis

import (
	"sort"
	"strconv"

	"github.com/xaenox/gamer-card/internal/models"
)

const (
	// MaxTopGames bounds how many items are enriched with store metadata
	MaxTopGames = 20
	// MaxGameNames bounds the owned-name index passed downstream
	MaxGameNames = 100
)

// Round1 rounds to one decimal place using the exact binary value of v, so
// 4999.95 (stored as 4999.9499...) becomes 4999.9.
func Round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}

// MinutesToHours converts a playtime in minutes to hours with one decimal
func MinutesToHours(minutes int) float64 {
	return Round1(float64(minutes) / 60)
}

// Summarize folds the enriched top items and the full library into an
// AnalysisSummary. all must be in the fetcher's order. The result depends only
// on its inputs.
func Summarize(enriched []models.EnrichedItem, all []models.OwnedItem) models.AnalysisSummary {
	totalMinutes := 0
	played := 0
	for _, g := range all {
		totalMinutes += g.PlaytimeForever
		if g.PlaytimeForever > 0 {
			played++
		}
	}

	recent := make([]models.EnrichedItem, 0)
	for _, g := range enriched {
		if g.Playtime2WeeksHours > 0 {
			recent = append(recent, g)
		}
	}

	names := make([]string, 0, min(len(all), MaxGameNames))
	for _, g := range all[:min(len(all), MaxGameNames)] {
		names = append(names, g.Name)
	}

	top := make([]models.EnrichedItem, len(enriched))
	copy(top, enriched)

	return models.AnalysisSummary{
		TotalPlaytimeHours: MinutesToHours(totalMinutes),
		TotalGames:         len(all),
		PlayedGames:        played,
		UnplayedGames:      len(all) - played,
		TopGames:           top,
		GenreDistribution:  GenreDistribution(enriched),
		RecentGames:        recent,
		AllGameNames:       names,
	}
}

// GenreDistribution sums item hours per genre. An item counts its full hours
// toward every genre it carries. Ties keep first-seen order.
func GenreDistribution(enriched []models.EnrichedItem) []models.GenreHours {
	index := make(map[string]int)
	dist := make([]models.GenreHours, 0)

	for _, g := range enriched {
		for _, genre := range g.Genres {
			i, seen := index[genre]
			if !seen {
				i = len(dist)
				index[genre] = i
				dist = append(dist, models.GenreHours{Genre: genre})
			}
			dist[i].Hours += g.PlaytimeHours
		}
	}

	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Hours > dist[j].Hours
	})
	return dist
}

// TopGenres returns up to n genre labels from the head of the distribution
func TopGenres(dist []models.GenreHours, n int) []string {
	out := make([]string, 0, n)
	for _, g := range dist {
		if len(out) == n {
			break
		}
		out = append(out, g.Genre)
	}
	return out
}
