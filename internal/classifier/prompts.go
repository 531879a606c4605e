package classifier

import (
	"fmt"
	"strings"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/models"
)

const personalitySystemPrompt = `You are a gamer profiling expert who analyses Steam library data.
Study the library below and describe the player's tastes, tendencies and play patterns in depth.

Guidelines:
- gamer_type is a creative, playful title (for example "The Sleepless Strategist" or "Indie Gem Hunter")
- gamer_type_english and portrait_prompt must be in English
- hidden_preference should point out a surprising pattern in the genre distribution
- portrait_prompt describes a fantasy character portrait symbolising the player, in this form:
  "Fantasy character portrait of a [gamer type], [personality visual traits], wearing a stylish casual outfit with subtle fantasy armor accents and glowing enchanted accessories, holding [game-related items], semi-realistic digital painting, warm cinematic lighting, dreamy bokeh background with floating magical particles, RPG character select screen aesthetic, shoulder-up composition"
- one_line_summary is at most 40 characters
- genre_analysis and play_pattern are 3-5 sentences, hidden_preference 2-3 sentences

Return only a JSON object with this structure:
{
    "gamer_type": "...",
    "gamer_type_english": "...",
    "gamer_type_emoji": "...",
    "tier": "S|A|B|C|D",
    "genre_analysis": "...",
    "play_pattern": "...",
    "hidden_preference": "...",
    "one_line_summary": "...",
    "top_genres": ["...", "...", "..."],
    "portrait_prompt": "..."
}`

const recommendSystemPrompt = `You are a Steam game recommendation expert.
Recommend games tailored to the player's data and personality analysis.

Rules:
- Only recommend real games that can be bought on Steam
- steam_url uses the form "https://store.steampowered.com/app/<appid>/<name>/"
- Never recommend a game the player already owns
- Explain each reason in 1-2 sentences tied to the player's tastes
- Cover several genres but weight the preferred ones
- Recommend 5 to 8 games

Return only a JSON object with this structure:
{
    "recommendations": [
        {"name": "...", "steam_url": "...", "reason": "...", "match_genre": "..."}
    ]
}`

func personalityUserPrompt(s models.AnalysisSummary, tier models.Tier) string {
	var b strings.Builder

	b.WriteString("Analyse the following Steam gamer data.\n\n## Stats\n")
	fmt.Fprintf(&b, "- Total playtime: %.1f hours\n", s.TotalPlaytimeHours)
	fmt.Fprintf(&b, "- Games owned: %d\n", s.TotalGames)
	fmt.Fprintf(&b, "- Games played: %d\n", s.PlayedGames)
	fmt.Fprintf(&b, "- Games never played: %d\n", s.UnplayedGames)
	fmt.Fprintf(&b, "- Computed tier: %s (%s)\n", tier, analysis.TierThresholds())

	fmt.Fprintf(&b, "\n## Most played games (top %d)\n", len(s.TopGames))
	writeGames(&b, s.TopGames, len(s.TopGames))

	b.WriteString("\n## Playtime by genre\n")
	writeGenres(&b, s.GenreDistribution, len(s.GenreDistribution))

	b.WriteString("\n## Recent activity\n")
	if len(s.RecentGames) == 0 {
		b.WriteString("No playtime in the last two weeks\n")
	}
	for _, g := range s.RecentGames {
		fmt.Fprintf(&b, "- %s: %.1f hours in the last two weeks\n", g.Name, g.Playtime2WeeksHours)
	}

	fmt.Fprintf(&b, "\nThe tier value must be %q.", tier)
	return b.String()
}

func recommendUserPrompt(s models.AnalysisSummary, p models.Personality, owned []string) string {
	var b strings.Builder

	b.WriteString("Recommend games for the following player.\n\n## Personality\n")
	fmt.Fprintf(&b, "- Type: %s\n", p.GamerType)
	fmt.Fprintf(&b, "- Analysis: %s\n", p.GenreAnalysis)
	fmt.Fprintf(&b, "- Hidden preference: %s\n", p.HiddenPreference)
	fmt.Fprintf(&b, "- Top genres: %s\n", strings.Join(p.TopGenres, ", "))

	b.WriteString("\n## Most played games\n")
	writeGames(&b, s.TopGames, 10)

	b.WriteString("\n## Genre distribution\n")
	writeGenres(&b, s.GenreDistribution, 8)

	b.WriteString("\n## Already owned (never recommend these)\n")
	b.WriteString(strings.Join(owned, ", "))
	return b.String()
}

func writeGames(b *strings.Builder, games []models.EnrichedItem, n int) {
	for _, g := range games[:min(n, len(games))] {
		genres := "unknown"
		if len(g.Genres) > 0 {
			genres = strings.Join(g.Genres, ", ")
		}
		fmt.Fprintf(b, "- %s: %.1f hours (genres: %s)\n", g.Name, g.PlaytimeHours, genres)
	}
}

func writeGenres(b *strings.Builder, dist []models.GenreHours, n int) {
	for _, g := range dist[:min(n, len(dist))] {
		fmt.Fprintf(b, "- %s: %.1f hours\n", g.Genre, g.Hours)
	}
}
