package steam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIKey:       "test-key",
		APIBaseURL:   srv.URL,
		StoreBaseURL: srv.URL,
	}, zaptest.NewLogger(t))
	return c, &calls
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		input string
		kind  ReferenceKind
		value string
	}{
		{"https://steamcommunity.com/profiles/76561198012345678", KindSteamID, "76561198012345678"},
		{"https://steamcommunity.com/profiles/76561198012345678/", KindSteamID, "76561198012345678"},
		{"steamcommunity.com/id/gaben", KindVanity, "gaben"},
		{"https://steamcommunity.com/id/gaben/?l=english", KindVanity, "gaben"},
		{"  76561198012345678  ", KindSteamID, "76561198012345678"},
		{"gaben", KindVanity, "gaben"},
		{"1234", KindVanity, "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := ParseReference(tt.input)
			if err != nil {
				t.Fatalf("ParseReference(%q) error: %v", tt.input, err)
			}
			if ref.Kind != tt.kind || ref.Value != tt.value {
				t.Errorf("ParseReference(%q) = %+v, want kind %d value %q", tt.input, ref, tt.kind, tt.value)
			}
		})
	}
}

func TestParseReferenceInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "https://example.com/user/gaben", "http://steamcommunity.com/groups/x"} {
		_, err := ParseReference(input)
		if !errors.Is(err, ErrInvalidReference) {
			t.Errorf("ParseReference(%q) = %v, want ErrInvalidReference", input, err)
		}
		if Guidance(err) == "" {
			t.Errorf("ParseReference(%q) error has no guidance", input)
		}
	}
}

func TestResolveIDCanonicalSkipsNetwork(t *testing.T) {
	c, calls := newTestClient(t, http.NotFoundHandler())

	id, err := c.ResolveID(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("ResolveID error: %v", err)
	}
	if id != "76561198012345678" {
		t.Errorf("ResolveID = %q, want input unchanged", id)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestResolveIDVanity(t *testing.T) {
	c, calls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ISteamUser/ResolveVanityURL/v1/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		switch r.URL.Query().Get("vanityurl") {
		case "gaben":
			fmt.Fprint(w, `{"response":{"steamid":"76561197960287930","success":1}}`)
		default:
			fmt.Fprint(w, `{"response":{"success":42,"message":"No match"}}`)
		}
	}))

	id, err := c.ResolveID(context.Background(), "https://steamcommunity.com/id/gaben/")
	if err != nil {
		t.Fatalf("ResolveID error: %v", err)
	}
	if id != "76561197960287930" {
		t.Errorf("ResolveID = %q", id)
	}

	_, err = c.ResolveID(context.Background(), "nobody-here")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if Guidance(err) == "" {
		t.Error("expected guidance text")
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestResolveVanityTransportError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.ResolveID(context.Background(), "gaben")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected the transport failure to be wrapped")
	}
}

func TestOwnedGamesSortedStable(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("include_appinfo") != "true" || q.Get("include_played_free_games") != "true" {
			t.Errorf("missing flags: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"response":{"game_count":4,"games":[
			{"appid":1,"name":"One","playtime_forever":10},
			{"appid":2,"name":"Two","playtime_forever":600,"playtime_2weeks":30},
			{"appid":3,"name":"Three","playtime_forever":10},
			{"appid":4,"name":"Four","playtime_forever":0}
		]}}`)
	}))

	games, err := c.OwnedGames(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("OwnedGames error: %v", err)
	}

	want := []int{2, 1, 3, 4}
	for i, g := range games {
		if g.AppID != want[i] {
			t.Fatalf("order = %v, want %v", games, want)
		}
	}
	if games[0].Playtime2Weeks != 30 {
		t.Errorf("Playtime2Weeks = %d, want 30", games[0].Playtime2Weeks)
	}
}

func TestOwnedGamesEmptyIsUnavailable(t *testing.T) {
	for _, body := range []string{`{"response":{}}`, `{"response":{"game_count":0,"games":[]}}`} {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		_, err := c.OwnedGames(context.Background(), "76561198012345678")
		if !errors.Is(err, ErrLibraryUnavailable) {
			t.Fatalf("body %s: expected ErrLibraryUnavailable, got %v", body, err)
		}
		if Guidance(err) == "" {
			t.Error("expected guidance text")
		}
	}
}

func TestAppDetails(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("appids") {
		case "570":
			fmt.Fprint(w, `{"570":{"success":true,"data":{
				"genres":[{"id":"1","description":"Action"},{"id":"2","description":"Strategy"}],
				"categories":[{"id":1,"description":"Multi-player"}],
				"short_description":"MOBA"}}}`)
		case "1":
			fmt.Fprint(w, `{"1":{"success":false}}`)
		default:
			fmt.Fprint(w, `null`)
		}
	}))

	d, found, err := c.AppDetails(context.Background(), 570)
	if err != nil || !found {
		t.Fatalf("AppDetails(570) = %v, %v", found, err)
	}
	if len(d.Genres) != 2 || d.Genres[0] != "Action" || d.Genres[1] != "Strategy" {
		t.Errorf("genres = %v", d.Genres)
	}
	if len(d.Categories) != 1 || d.ShortDescription != "MOBA" {
		t.Errorf("details = %+v", d)
	}

	for _, id := range []int{1, 2} {
		_, found, err := c.AppDetails(context.Background(), id)
		if err != nil || found {
			t.Errorf("AppDetails(%d) = %v, %v; want not found", id, found, err)
		}
	}
}

func TestSearchStore(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") == "Hades" {
			fmt.Fprint(w, `{"total":1,"items":[{"id":1145360,"name":"Hades"}]}`)
			return
		}
		fmt.Fprint(w, `{"total":0,"items":[]}`)
	}))

	hit, found, err := c.SearchStore(context.Background(), "Hades")
	if err != nil || !found {
		t.Fatalf("SearchStore = %v, %v", found, err)
	}
	if hit.AppID != 1145360 || hit.URL != "https://store.steampowered.com/app/1145360/" {
		t.Errorf("hit = %+v", hit)
	}

	_, found, err = c.SearchStore(context.Background(), "nothing")
	if err != nil || found {
		t.Errorf("expected no hit, got %v, %v", found, err)
	}
}

func TestStoreBreakerIgnoresCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"570":{"success":true,"data":{}}}`)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 8; i++ {
		if _, _, err := c.AppDetails(ctx, 570); !errors.Is(err, context.Canceled) {
			t.Fatalf("AppDetails with cancelled context = %v", err)
		}
	}
	if state := c.storeBreaker.State(); state != gobreaker.StateClosed {
		t.Fatalf("breaker state after cancellations = %s, want closed", state)
	}

	if _, found, err := c.AppDetails(context.Background(), 570); err != nil || !found {
		t.Errorf("AppDetails after cancellations = %v, %v", found, err)
	}
}

func TestStoreBreakerOpensOnServerErrors(t *testing.T) {
	c, calls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 5; i++ {
		if _, _, err := c.AppDetails(context.Background(), 570); err == nil {
			t.Fatal("expected an error from a failing store")
		}
	}
	if state := c.storeBreaker.State(); state != gobreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", state)
	}

	before := atomic.LoadInt32(calls)
	if _, _, err := c.AppDetails(context.Background(), 570); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("AppDetails with open breaker = %v", err)
	}
	if atomic.LoadInt32(calls) != before {
		t.Error("open breaker still reached the store")
	}
}
