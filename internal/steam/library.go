package steam

import (
	"context"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
)

type ownedGamesResponse struct {
	Response struct {
		GameCount int                `json:"game_count"`
		Games     []models.OwnedItem `json:"games"`
	} `json:"response"`
}

// OwnedGames returns the full library of steamID sorted by all-time playtime,
// most played first. An empty library is reported as ErrLibraryUnavailable:
// the API returns the same empty response for private profiles.
func (c *Client) OwnedGames(ctx context.Context, steamID string) ([]models.OwnedItem, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("include_appinfo", "true")
	params.Set("include_played_free_games", "true")

	var resp ownedGamesResponse
	if err := c.getJSON(ctx, "owned_games", c.apiURL("/IPlayerService/GetOwnedGames/v1/", params), &resp); err != nil {
		c.logger.Warn("Failed to fetch owned games", zap.String("steam_id", steamID), zap.Error(err))
		return nil, newError(ErrLibraryUnavailable, guidanceLibraryUnavailable, err)
	}

	games := resp.Response.Games
	if len(games) == 0 {
		return nil, newError(ErrLibraryUnavailable, guidanceLibraryUnavailable, nil)
	}

	sort.SliceStable(games, func(i, j int) bool {
		return games[i].PlaytimeForever > games[j].PlaytimeForever
	})
	return games, nil
}
