package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/models"
)

type Classifier interface {
	Classify(ctx context.Context, summary models.AnalysisSummary) (models.Personality, error)
}

type archetype struct {
	title   string
	emoji   string
	visuals string
}

// archetypes by the leading genre of a library
var archetypes = map[string]archetype{
	"action":                {"Adrenaline Chaser", "⚔️", "fierce eyes and battle scars"},
	"adventure":             {"Wandering Explorer", "🧭", "a weathered travel cloak and curious gaze"},
	"rpg":                   {"Lore-Bound Hero", "🐉", "an ancient tome and rune-etched gauntlets"},
	"strategy":              {"Grand Strategist", "♟️", "a calm calculating stare and a war map"},
	"simulation":            {"World Architect", "🏗️", "blueprints and tinkering tools"},
	"indie":                 {"Hidden Gem Hunter", "💎", "a lantern and a satchel of curiosities"},
	"casual":                {"Cozy Companion", "☕", "a warm smile and a steaming mug"},
	"sports":                {"Arena Champion", "🏆", "a champion's jersey and confident grin"},
	"racing":                {"Speed Demon", "🏎️", "racing goggles and wind-swept hair"},
	"massively multiplayer": {"Guild Veteran", "🛡️", "a guild crest and well-worn armor"},
	"free to play":          {"Free Spirit", "🎲", "a carefree grin and a pocket of dice"},
}

var defaultArchetype = archetype{"Curious Newcomer", "🎮", "bright eyes and a fresh controller"}

// FallbackClassifier builds a personality from the summary alone. It is used
// when the generative classifier is unavailable.
type FallbackClassifier struct{}

func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{}
}

func (c *FallbackClassifier) Classify(ctx context.Context, summary models.AnalysisSummary) (models.Personality, error) {
	top := analysis.TopGenres(summary.GenreDistribution, 3)

	a := defaultArchetype
	if len(top) > 0 {
		if found, ok := archetypes[strings.ToLower(top[0])]; ok {
			a = found
		}
	}

	genreText := "no clear genre preference yet"
	if len(top) > 0 {
		genreText = strings.Join(top, ", ")
	}

	p := models.Personality{
		GamerType:        a.title,
		GamerTypeEnglish: a.title,
		GamerTypeEmoji:   a.emoji,
		GenreAnalysis: fmt.Sprintf("Most of your tracked hours go to %s. Your top %d titles account for the bulk of your playtime.",
			genreText, len(summary.TopGames)),
		PlayPattern: playPattern(summary),
		HiddenPreference: fmt.Sprintf("%d of your %d games are still waiting to be played.",
			summary.UnplayedGames, summary.TotalGames),
		OneLineSummary: a.title,
		TopGenres:      top,
	}
	p.PortraitPrompt = portraitPrompt(a.title, a.visuals)
	return Reconcile(p, summary), nil
}

func playPattern(summary models.AnalysisSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have logged %.1f hours across %d played games.", summary.TotalPlaytimeHours, summary.PlayedGames)
	if len(summary.RecentGames) > 0 {
		fmt.Fprintf(&b, " Lately you keep coming back to %s.", summary.RecentGames[0].Name)
	} else {
		b.WriteString(" You have not played anything in the last two weeks.")
	}
	return b.String()
}

func portraitPrompt(gamerType, visuals string) string {
	return fmt.Sprintf("Fantasy character portrait of a %s, %s, wearing a stylish casual outfit with subtle fantasy "+
		"armor accents and glowing enchanted accessories, holding a game controller, semi-realistic digital painting, "+
		"warm cinematic lighting, dreamy bokeh background with floating magical particles, RPG character select "+
		"screen aesthetic, shoulder-up composition", gamerType, visuals)
}
