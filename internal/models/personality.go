package models

// Personality is the structured gamer profile returned by the classifier.
// Tier is advisory until it has been reconciled against the computed tier.
type Personality struct {
	GamerType        string   `json:"gamer_type"`
	GamerTypeEnglish string   `json:"gamer_type_english"`
	GamerTypeEmoji   string   `json:"gamer_type_emoji"`
	Tier             Tier     `json:"tier"`
	GenreAnalysis    string   `json:"genre_analysis"`
	PlayPattern      string   `json:"play_pattern"`
	HiddenPreference string   `json:"hidden_preference"`
	OneLineSummary   string   `json:"one_line_summary"`
	TopGenres        []string `json:"top_genres"`
	PortraitPrompt   string   `json:"portrait_prompt"`
}

// Recommendation is a single suggested title. AppID is 0 when the store
// lookup could not confirm the title.
type Recommendation struct {
	Name       string `json:"name"`
	SteamURL   string `json:"steam_url"`
	Reason     string `json:"reason"`
	MatchGenre string `json:"match_genre"`
	AppID      int    `json:"appid,omitempty"`
}
