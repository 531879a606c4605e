package models

// OwnedItem is one game from the owner's library as reported by the platform.
// Playtimes are in minutes.
type OwnedItem struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  int    `json:"playtime_2weeks"`
}

// AppDetails is the store metadata for a single app
type AppDetails struct {
	Genres           []string `json:"genres"`
	Categories       []string `json:"categories"`
	ShortDescription string   `json:"short_description"`
}

// EnrichedItem is an OwnedItem joined with its store metadata. Hours are rounded
// to one decimal place.
type EnrichedItem struct {
	AppID               int      `json:"appid"`
	Name                string   `json:"name"`
	PlaytimeHours       float64  `json:"playtime_hours"`
	Playtime2WeeksHours float64  `json:"playtime_2weeks"`
	Genres              []string `json:"genres"`
	Categories          []string `json:"categories"`
	ShortDescription    string   `json:"short_description"`
}

// GenreHours is one entry of a genre distribution
type GenreHours struct {
	Genre string  `json:"genre"`
	Hours float64 `json:"hours"`
}

// AnalysisSummary is the aggregate handed to the classifier, recommender and
// portrait collaborators.
type AnalysisSummary struct {
	TotalPlaytimeHours float64        `json:"total_playtime_hours"`
	TotalGames         int            `json:"total_games"`
	PlayedGames        int            `json:"played_games"`
	UnplayedGames      int            `json:"unplayed_games"`
	TopGames           []EnrichedItem `json:"top_games"`
	GenreDistribution  []GenreHours   `json:"genre_distribution"`
	RecentGames        []EnrichedItem `json:"recent_games"`
	AllGameNames       []string       `json:"all_game_names"`
}

// Tier is the ordinal gamer tier, S > A > B > C > D.
type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Rank orders tiers; D is 0 and S is 4. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierS:
		return 4
	case TierA:
		return 3
	case TierB:
		return 2
	case TierC:
		return 1
	case TierD:
		return 0
	}
	return -1
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}
