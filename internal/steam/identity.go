package steam

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type ReferenceKind int

const (
	// KindSteamID means Value is already a canonical 64-bit Steam ID
	KindSteamID ReferenceKind = iota
	// KindVanity means Value is a handle that must be resolved
	KindVanity
)

type Reference struct {
	Kind  ReferenceKind
	Value string
}

var (
	profilesPattern = regexp.MustCompile(`steamcommunity\.com/profiles/(\d+)`)
	vanityPattern   = regexp.MustCompile(`steamcommunity\.com/id/([^/?#]+)`)
	steamIDPattern  = regexp.MustCompile(`^\d{17}$`)
)

// ParseReference classifies a user-supplied profile reference. It never
// touches the network.
func ParseReference(input string) (Reference, error) {
	s := strings.TrimRight(strings.TrimSpace(input), "/")

	if m := profilesPattern.FindStringSubmatch(s); m != nil {
		return Reference{Kind: KindSteamID, Value: m[1]}, nil
	}
	if m := vanityPattern.FindStringSubmatch(s); m != nil {
		return Reference{Kind: KindVanity, Value: m[1]}, nil
	}
	if steamIDPattern.MatchString(s) {
		return Reference{Kind: KindSteamID, Value: s}, nil
	}
	if s != "" && !strings.HasPrefix(s, "http") {
		return Reference{Kind: KindVanity, Value: s}, nil
	}

	return Reference{}, newError(ErrInvalidReference, guidanceInvalidReference, nil)
}

type resolveVanityResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
		Message string `json:"message"`
	} `json:"response"`
}

// ResolveID turns a profile reference into a canonical Steam ID. Handles cost
// one ResolveVanityURL round trip; canonical IDs cost none.
func (c *Client) ResolveID(ctx context.Context, reference string) (string, error) {
	ref, err := ParseReference(reference)
	if err != nil {
		return "", err
	}
	if ref.Kind == KindSteamID {
		return ref.Value, nil
	}
	return c.ResolveVanity(ctx, ref.Value)
}

func (c *Client) ResolveVanity(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("vanityurl", handle)

	var resp resolveVanityResponse
	if err := c.getJSON(ctx, "resolve_vanity", c.apiURL("/ISteamUser/ResolveVanityURL/v1/", params), &resp); err != nil {
		c.logger.Warn("Failed to resolve vanity URL", zap.String("handle", handle), zap.Error(err))
		return "", newError(ErrAccountNotFound, guidanceAccountNotFound(handle), err)
	}

	if resp.Response.Success != 1 || resp.Response.SteamID == "" {
		return "", newError(ErrAccountNotFound, guidanceAccountNotFound(handle), nil)
	}
	return resp.Response.SteamID, nil
}
