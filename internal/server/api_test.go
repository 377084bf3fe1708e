package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/tasks"
	"golang.org/x/oauth2"
)

type mockInspector struct {
	info *models.PlaylistInfo
	err  error
}

func (m *mockInspector) Info(ctx context.Context, ref string) (*models.PlaylistInfo, error) {
	return m.info, m.err
}

type mockRunner struct {
	result   *models.ClassifyResult
	err      error
	ref      string
	emotions []string
	deadline bool
}

func (m *mockRunner) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, ref string, emotions []string) (*models.ClassifyResult, error) {
	m.ref, m.emotions = ref, emotions
	_, m.deadline = ctx.Deadline()
	return m.result, m.err
}

type mockExchanger struct {
	token       *oauth2.Token
	err         error
	code        string
	redirectURI string
}

func (m *mockExchanger) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	m.code, m.redirectURI = code, redirectURI
	return m.token, m.err
}

type mockWriter struct {
	result *models.SaveResult
	err    error
	token  *oauth2.Token
	req    models.SaveRequest
}

func (m *mockWriter) SaveGrouped(ctx context.Context, token *oauth2.Token, req models.SaveRequest) (*models.SaveResult, error) {
	m.token, m.req = token, req
	return m.result, m.err
}

func newTestRouter(api *API) *BasicRouter {
	router := NewBasicRouter()
	api.Register(router)
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %s", rec.Body.String())
	}
	return resp.Detail
}

func TestAPI_Liveness(t *testing.T) {
	router := newTestRouter(NewAPI(nil, nil, nil, nil))

	for _, path := range []string{"/", "/health"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, path, "")
			if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
				t.Errorf("got %d %s", rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("Unknown Path", func(t *testing.T) {
		if rec := do(t, router, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestAPI_PlaylistInfo(t *testing.T) {
	tests := []struct {
		name       string
		inspector  *mockInspector
		body       string
		wantStatus int
	}{
		{
			name:       "Success",
			inspector:  &mockInspector{info: &models.PlaylistInfo{PlaylistID: "p1", TotalSongs: 42}},
			body:       `{"playlist_url":"p1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "Invalid Reference",
			inspector:  &mockInspector{err: shared.NewValidationError("playlist_url", "must not be empty")},
			body:       `{"playlist_url":""}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Provider Failure",
			inspector:  &mockInspector{err: fmt.Errorf("%w: spotify API error (500): oops", shared.ErrAPIRequest)},
			body:       `{"playlist_url":"p1"}`,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "Malformed Body",
			inspector:  &mockInspector{},
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewAPI(tt.inspector, nil, nil, nil))
			rec := do(t, router, http.MethodPost, "/playlist_info", tt.body)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var info models.PlaylistInfo
				if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil || info.TotalSongs != 42 {
					t.Errorf("body = %s", rec.Body.String())
				}
			}
		})
	}

	t.Run("Not Configured", func(t *testing.T) {
		router := newTestRouter(NewAPI(nil, nil, nil, nil))
		if rec := do(t, router, http.MethodPost, "/playlist_info", `{}`); rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestAPI_Classify(t *testing.T) {
	rateLimited := &tasks.AggregateBatchFailure{
		Failed: []models.FailedBatch{{Batch: 1, Reason: "openrouter request failed after 3 attempts: OpenRouter API error 429: slow down"}},
	}
	serverError := &tasks.AggregateBatchFailure{
		Failed: []models.FailedBatch{{Batch: 2, Reason: "OpenRouter API error 500: boom"}},
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"Validation", shared.NewValidationError("emotions", "at least one emotion must be selected"), http.StatusBadRequest, "emotions"},
		{"Missing Key", &shared.ConfigurationError{Key: "credentials.openrouter.api_key"}, http.StatusInternalServerError, "api_key"},
		{"Rate Limited Batches", rateLimited, http.StatusServiceUnavailable, "retry in 20-60 seconds"},
		{"Failed Batches", serverError, http.StatusInternalServerError, "batch 2"},
		{"Rate Limited Fetch", fmt.Errorf("%w: spotify API error (429)", shared.ErrRateLimited), http.StatusServiceUnavailable, "429"},
		{"Other", errors.New("kaboom"), http.StatusInternalServerError, "kaboom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewAPI(nil, &mockRunner{err: tt.err}, nil, nil))
			rec := do(t, router, http.MethodPost, "/classify", `{"playlist_url":"p1","emotions":["mutlu"]}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if d := detail(t, rec); !strings.Contains(d, tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", d, tt.wantDetail)
			}
		})
	}

	t.Run("Success", func(t *testing.T) {
		runner := &mockRunner{result: &models.ClassifyResult{
			PlaylistID:    "p1",
			TotalSongs:    1,
			TotalBatches:  1,
			Emotions:      []string{"neşeli"},
			EmotionStats:  map[string]models.EmotionStat{"neşeli": {Count: 1, Percentage: 100}},
			GroupedTracks: map[string][]models.GroupedTrack{"neşeli": {{Name: "A"}}},
			FailedBatches: []models.FailedBatch{},
		}}
		router := newTestRouter(NewAPI(nil, runner, nil, nil, WithClassifyTimeout(time.Minute)))

		rec := do(t, router, http.MethodPost, "/classify", `{"playlist_url":"https://open.spotify.com/playlist/p1","emotions":["Neşeli"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		for _, key := range []string{"playlist_id", "total_songs", "total_batches", "emotions", "emotion_stats", "grouped_tracks", "failed_batches"} {
			if _, ok := body[key]; !ok {
				t.Errorf("response missing %q", key)
			}
		}
		if !strings.Contains(rec.Body.String(), "neşeli") {
			t.Error("labels should not be escaped")
		}
		if runner.ref != "https://open.spotify.com/playlist/p1" || runner.emotions[0] != "Neşeli" {
			t.Errorf("runner got %q %v", runner.ref, runner.emotions)
		}
		if !runner.deadline {
			t.Error("classification should run under a timeout")
		}
	})
}

func TestClassifyStatus(t *testing.T) {
	if got := ClassifyStatus(fmt.Errorf("wrapped: %w", shared.NewValidationError("x", "y"))); got != http.StatusBadRequest {
		t.Errorf("wrapped validation = %d, want 400", got)
	}
	if got := ClassifyStatus(&services.ProviderError{Provider: "openrouter", Attempts: 3, Err: shared.ErrRateLimited}); got != http.StatusServiceUnavailable {
		t.Errorf("provider rate limit = %d, want 503", got)
	}
}

func TestAPI_SpotifyToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		token := (&oauth2.Token{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(time.Hour),
		}).WithExtra(map[string]any{"scope": "playlist-modify-public"})
		ex := &mockExchanger{token: token}
		router := newTestRouter(NewAPI(nil, nil, ex, nil))

		rec := do(t, router, http.MethodPost, "/spotify/token", `{"code":"abc","redirect_uri":"http://localhost:3000/callback"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var resp tokenResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.AccessToken != "access" || resp.RefreshToken != "refresh" || resp.Scope != "playlist-modify-public" {
			t.Errorf("response = %+v", resp)
		}
		if resp.ExpiresIn < 3590 || resp.ExpiresIn > 3600 {
			t.Errorf("expires_in = %d, want ~3600", resp.ExpiresIn)
		}
		if ex.code != "abc" || ex.redirectURI != "http://localhost:3000/callback" {
			t.Errorf("exchanger got %q %q", ex.code, ex.redirectURI)
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		ex := &mockExchanger{err: &shared.ConfigurationError{Key: "credentials.spotify.client_id"}}
		rec := do(t, newTestRouter(NewAPI(nil, nil, ex, nil)), http.MethodPost, "/spotify/token", `{"code":"abc"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("Exchange Rejected", func(t *testing.T) {
		ex := &mockExchanger{err: fmt.Errorf("%w: invalid_grant", shared.ErrAuthFailed)}
		rec := do(t, newTestRouter(NewAPI(nil, nil, ex, nil)), http.MethodPost, "/spotify/token", `{"code":"abc"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAPI_SavePlaylists(t *testing.T) {
	body := `{
		"access_token": " user-token ",
		"grouped_tracks": {"mutlu": [{"id": "t1", "name": "A", "artist": "B", "url": "u"}], "sakin": []},
		"playlist_names": {"mutlu": "Happy Mix"},
		"public": true
	}`

	t.Run("Success", func(t *testing.T) {
		w := &mockWriter{result: &models.SaveResult{
			CreatedPlaylists: []models.CreatedPlaylist{{Emotion: "mutlu", PlaylistID: "pl1", AddedTracks: 1}},
			Skipped:          []models.SkippedPlaylist{{Emotion: "sakin", Reason: services.SkipReasonNoTracks}},
		}}
		rec := do(t, newTestRouter(NewAPI(nil, nil, nil, w)), http.MethodPost, "/save_playlists", body)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if w.token.AccessToken != "user-token" {
			t.Errorf("token = %q, want trimmed user-token", w.token.AccessToken)
		}
		if !w.req.Public || w.req.PlaylistNames["mutlu"] != "Happy Mix" || len(w.req.GroupedTracks["mutlu"]) != 1 {
			t.Errorf("request = %+v", w.req)
		}
		if got := w.req.GroupedTracks["mutlu"][0].ID; got == nil || *got != "t1" {
			t.Errorf("track id = %v, want t1", got)
		}
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"Expired Token", fmt.Errorf("%w: spotify API error (401): The access token expired", shared.ErrTokenExpired), http.StatusUnauthorized},
		{"Missing Token", fmt.Errorf("%w: access token required", shared.ErrNotAuthenticated), http.StatusUnauthorized},
		{"Provider Error", fmt.Errorf("%w: spotify API error (403): forbidden", shared.ErrAPIRequest), http.StatusBadRequest},
		{"Unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{err: tt.err}
			rec := do(t, newTestRouter(NewAPI(nil, nil, nil, w)), http.MethodPost, "/save_playlists", body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
