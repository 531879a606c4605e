package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/xaenox/gamer-card/internal/models"
)

type describedEntry struct {
	Description string `json:"description"`
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Genres           []describedEntry `json:"genres"`
		Categories       []describedEntry `json:"categories"`
		ShortDescription string           `json:"short_description"`
	} `json:"data"`
}

// AppDetails fetches store metadata for one app. found is false when the store
// reports success=false for the app (delisted, region locked and so on).
func (c *Client) AppDetails(ctx context.Context, appID int) (details models.AppDetails, found bool, err error) {
	params := url.Values{}
	params.Set("appids", strconv.Itoa(appID))
	params.Set("l", c.cfg.Language)

	// the store answers {"<appid>": {...}}, or null for unknown ids
	var resp map[string]json.RawMessage
	if err := c.getStoreJSON(ctx, "app_details", c.storeURL("/api/appdetails", params), &resp); err != nil {
		return models.AppDetails{}, false, err
	}

	raw, ok := resp[strconv.Itoa(appID)]
	if !ok {
		return models.AppDetails{}, false, nil
	}
	var entry appDetailsEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.AppDetails{}, false, fmt.Errorf("failed to decode app_details entry: %w", err)
	}
	if !entry.Success {
		return models.AppDetails{}, false, nil
	}

	details = models.AppDetails{
		Genres:           descriptions(entry.Data.Genres),
		Categories:       descriptions(entry.Data.Categories),
		ShortDescription: entry.Data.ShortDescription,
	}
	return details, true, nil
}

func descriptions(entries []describedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Description != "" {
			out = append(out, e.Description)
		}
	}
	return out
}

// StoreHit is the first store search result for a title
type StoreHit struct {
	AppID int
	Name  string
	URL   string
}

type storeSearchResponse struct {
	Total int `json:"total"`
	Items []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
}

// SearchStore looks a title up in the storefront search and returns the top hit
func (c *Client) SearchStore(ctx context.Context, term string) (StoreHit, bool, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("l", c.cfg.Language)
	params.Set("cc", c.cfg.Country)

	var resp storeSearchResponse
	if err := c.getStoreJSON(ctx, "store_search", c.storeURL("/api/storesearch/", params), &resp); err != nil {
		return StoreHit{}, false, err
	}
	if len(resp.Items) == 0 {
		return StoreHit{}, false, nil
	}

	top := resp.Items[0]
	name := top.Name
	if name == "" {
		name = term
	}
	return StoreHit{
		AppID: top.ID,
		Name:  name,
		URL:   AppURL(top.ID),
	}, true, nil
}

func AppURL(appID int) string {
	return fmt.Sprintf("%s/app/%d/", DefaultStoreBaseURL, appID)
}
