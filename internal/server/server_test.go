package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
	"github.com/xaenox/gamer-card/internal/steam"
	"github.com/xaenox/gamer-card/internal/storage"
)

type fakeRunner struct {
	err     error
	started chan struct{}
	blockOn chan struct{}
	// ctxErr is the run context's error when the run is released
	ctxErr      error
	hasDeadline bool
}

func (f *fakeRunner) Run(ctx context.Context, reference string, observe pipeline.Observer) (*models.Analysis, error) {
	_, f.hasDeadline = ctx.Deadline()
	observe(models.Progress{Stage: models.StageResolve})
	observe(models.Progress{Stage: models.StageEnrich, Done: 1, Total: 2})
	if f.started != nil {
		close(f.started)
	}
	if f.blockOn != nil {
		select {
		case <-f.blockOn:
			f.ctxErr = ctx.Err()
		case <-ctx.Done():
			f.ctxErr = ctx.Err()
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Analysis{
		ID:      uuid.New(),
		SteamID: "76561198000000001",
		Summary: models.AnalysisSummary{TotalGames: 3},
		Personality: models.Personality{
			GamerType: "Strategist",
			Tier:      models.TierC,
		},
		Recommendations: []models.Recommendation{{Name: "Factorio", AppID: 427520}},
		Portrait:        []byte("portrait-bytes"),
		Card:            []byte("card-bytes"),
	}, nil
}

func newTestServer(t *testing.T, runner Runner, cfg Config) (*Server, http.Handler) {
	t.Helper()
	srv := New(runner, storage.NewResultStore(time.Hour), cfg, zaptest.NewLogger(t))
	return srv, srv.Handler()
}

func submit(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSubmitAndPoll(t *testing.T) {
	srv, h := newTestServer(t, &fakeRunner{}, Config{})

	rec := submit(t, h, `{"profile": "https://steamcommunity.com/id/gabelogannewell"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	created := decodeBody[submitResponse](t, rec)
	if created.Status != models.StatusRunning {
		t.Errorf("status = %q", created.Status)
	}
	srv.Wait()

	rec = get(h, "/api/v1/analyses/"+created.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	got := decodeBody[analysisResponse](t, rec)
	if got.Status != models.StatusDone || got.Progress.Stage != models.StageDone {
		t.Errorf("status %q stage %q", got.Status, got.Progress.Stage)
	}
	if got.Personality == nil || got.Personality.GamerType != "Strategist" {
		t.Errorf("personality = %+v", got.Personality)
	}
	if len(got.Recommendations) != 1 || got.SteamID != "76561198000000001" {
		t.Errorf("unexpected result %+v", got)
	}
	if got.CardURL != "/api/v1/analyses/"+created.ID.String()+"/card.png" {
		t.Errorf("card url = %q", got.CardURL)
	}

	for path, want := range map[string]string{got.CardURL: "card-bytes", got.PortraitURL: "portrait-bytes"} {
		rec = get(h, path)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Errorf("%s: status %d, type %q", path, rec.Code, rec.Header().Get("Content-Type"))
		}
		if !bytes.Equal(rec.Body.Bytes(), []byte(want)) {
			t.Errorf("%s: body %q", path, rec.Body)
		}
	}
}

func TestRunIsDetachedFromRequest(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}), blockOn: make(chan struct{})}
	srv, h := newTestServer(t, runner, Config{AnalysisTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses",
		strings.NewReader(`{"profile":"76561198000000001"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}
	cancel()
	close(runner.blockOn)
	srv.Wait()

	if runner.ctxErr != nil {
		t.Errorf("run context was cancelled with the request: %v", runner.ctxErr)
	}
	if !runner.hasDeadline {
		t.Error("run context has no deadline")
	}

	created := decodeBody[submitResponse](t, rec)
	got := decodeBody[analysisResponse](t, get(h, "/api/v1/analyses/"+created.ID.String()))
	if got.Status != models.StatusDone {
		t.Errorf("status = %q", got.Status)
	}
}

func TestProgressVisibleWhileRunning(t *testing.T) {
	runner := &fakeRunner{blockOn: make(chan struct{})}
	srv, h := newTestServer(t, runner, Config{})

	created := decodeBody[submitResponse](t, submit(t, h, `{"profile":"76561198000000001"}`))
	path := "/api/v1/analyses/" + created.ID.String()

	deadline := time.Now().Add(2 * time.Second)
	var got analysisResponse
	for time.Now().Before(deadline) {
		got = decodeBody[analysisResponse](t, get(h, path))
		if got.Progress.Stage == models.StageEnrich {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got.Status != models.StatusRunning || got.Progress.Done != 1 || got.Progress.Total != 2 {
		t.Errorf("in-flight record = %+v", got)
	}

	if rec := get(h, path+"/card.png"); rec.Code != http.StatusConflict {
		t.Errorf("card before completion: status %d", rec.Code)
	}

	close(runner.blockOn)
	srv.Wait()
}

func TestFailedRunShowsGuidance(t *testing.T) {
	failure := &steam.Error{Kind: steam.ErrLibraryUnavailable, Guidance: "make it public", Err: context.DeadlineExceeded}
	srv, h := newTestServer(t, &fakeRunner{err: failure}, Config{})

	created := decodeBody[submitResponse](t, submit(t, h, `{"profile":"someone"}`))
	srv.Wait()

	got := decodeBody[analysisResponse](t, get(h, "/api/v1/analyses/"+created.ID.String()))
	if got.Status != models.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Error != steam.ErrLibraryUnavailable.Error() || got.Guidance != "make it public" {
		t.Errorf("error %q guidance %q", got.Error, got.Guidance)
	}
	if got.Summary != nil || got.CardURL != "" {
		t.Error("failed analysis should carry no result")
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t, &fakeRunner{}, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"profile":`},
		{"missing profile", `{}`},
		{"too long", `{"profile":"` + strings.Repeat("a", 300) + `"}`},
		{"foreign url", `{"profile":"https://example.com/user/1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submit(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decodeBody[errorResponse](t, rec)
			if body.Error == "" || body.Guidance == "" {
				t.Errorf("error body = %+v", body)
			}
		})
	}
}

func TestUnknownAnalysis(t *testing.T) {
	_, h := newTestServer(t, &fakeRunner{}, Config{})

	for _, path := range []string{
		"/api/v1/analyses/" + uuid.NewString(),
		"/api/v1/analyses/not-a-uuid",
		"/api/v1/analyses/" + uuid.NewString() + "/card.png",
	} {
		if rec := get(h, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestSubmitRateLimited(t *testing.T) {
	srv, h := newTestServer(t, &fakeRunner{}, Config{RateLimit: 1})

	if rec := submit(t, h, `{"profile":"76561198000000001"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("first submit: %d", rec.Code)
	}
	rec := submit(t, h, `{"profile":"76561198000000001"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second submit: %d", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.Guidance == "" {
		t.Error("rate limit response lacks guidance")
	}
	srv.Wait()
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestServer(t, &fakeRunner{}, Config{})

	if rec := get(h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz: %d", rec.Code)
	}
	rec := get(h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "gamercard_") {
		t.Errorf("metrics: %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	_, h := newTestServer(t, &fakeRunner{}, Config{CORSOrigins: []string{"https://cards.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
	req.Header.Set("Origin", "https://cards.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://cards.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allowed origin %q", got)
	}
}
