package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/tasks"
	"golang.org/x/oauth2"
)

const (
	// DefaultClassifyTimeout bounds a whole /classify run.
	DefaultClassifyTimeout = 15 * time.Minute
	maxBodyBytes           = 10 << 20
)

// PlaylistInspector returns a playlist summary for a reference.
type PlaylistInspector interface {
	Info(ctx context.Context, ref string) (*models.PlaylistInfo, error)
}

// ClassifyRunner runs the classification pipeline for a reference.
type ClassifyRunner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, ref string, emotions []string) (*models.ClassifyResult, error)
}

// TokenExchanger trades an OAuth authorization code for a user token.
type TokenExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
}

// API serves the JSON endpoints consumed by the web frontend.
type API struct {
	playlists  PlaylistInspector
	classifier ClassifyRunner
	tokens     TokenExchanger
	writer     services.PlaylistWriter
	timeout    time.Duration
	logger     *log.Logger
}

// APIOption configures an [API].
type APIOption func(*API)

// WithClassifyTimeout overrides [DefaultClassifyTimeout].
func WithClassifyTimeout(d time.Duration) APIOption {
	return func(a *API) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAPILogger sets the handler logger.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPI creates the API. Nil collaborators make their endpoints answer 500.
func NewAPI(playlists PlaylistInspector, classifier ClassifyRunner, tokens TokenExchanger, writer services.PlaylistWriter, opts ...APIOption) *API {
	a := &API{
		playlists:  playlists,
		classifier: classifier,
		tokens:     tokens,
		writer:     writer,
		timeout:    DefaultClassifyTimeout,
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds every endpoint to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.Root))
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	r.Handle(http.MethodPost, "/playlist_info", http.HandlerFunc(a.PlaylistInfo))
	r.Handle(http.MethodPost, "/classify", http.HandlerFunc(a.Classify))
	r.Handle(http.MethodPost, "/spotify/token", http.HandlerFunc(a.SpotifyToken))
	r.Handle(http.MethodPost, "/save_playlists", http.HandlerFunc(a.SavePlaylists))
}

type playlistInfoRequest struct {
	PlaylistURL string `json:"playlist_url"`
}

type classifyRequest struct {
	PlaylistURL string   `json:"playlist_url"`
	Emotions    []string `json:"emotions"`
}

type tokenRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type savePlaylistsRequest struct {
	AccessToken string `json:"access_token"`
	models.SaveRequest
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Root handles GET /
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Health handles GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// PlaylistInfo handles POST /playlist_info
func (a *API) PlaylistInfo(w http.ResponseWriter, r *http.Request) {
	var req playlistInfoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.playlists == nil {
		writeError(w, http.StatusInternalServerError, (&shared.ConfigurationError{Key: "credentials.spotify"}).Error())
		return
	}

	a.logger.Info("playlist info requested", "url", req.PlaylistURL)
	info, err := a.playlists.Info(r.Context(), req.PlaylistURL)
	if err != nil {
		status := http.StatusInternalServerError
		detail := fmt.Sprintf("failed to read playlist: %v", err)
		if shared.IsValidation(err) {
			status, detail = http.StatusBadRequest, err.Error()
		}
		a.logger.Error("playlist info failed", "status", status, "error", err)
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Classify handles POST /classify
func (a *API) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.classifier == nil {
		writeError(w, http.StatusInternalServerError, (&shared.ConfigurationError{Key: "classifier.provider"}).Error())
		return
	}

	a.logger.Info("classification requested", "url", req.PlaylistURL, "emotions", req.Emotions)

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	result, err := a.classifier.Run(ctx, nil, req.PlaylistURL, req.Emotions)
	if err != nil {
		status := ClassifyStatus(err)
		detail := fmt.Sprintf("classification failed: %v", err)
		switch status {
		case http.StatusBadRequest:
			detail = err.Error()
		case http.StatusServiceUnavailable:
			detail = fmt.Sprintf("the AI service is temporarily overloaded, please retry in 20-60 seconds: %v", err)
		}
		a.logger.Error("classification failed", "status", status, "error", err)
		writeError(w, status, detail)
		return
	}

	a.logger.Info("classification finished",
		"playlist_id", result.PlaylistID, "total_songs", result.TotalSongs,
		"total_batches", result.TotalBatches, "failed_batches", len(result.FailedBatches))
	writeJSON(w, http.StatusOK, result)
}

// ClassifyStatus maps a pipeline error onto an HTTP status:
// 400 for bad input, 503 for rate limits, 500 otherwise.
func ClassifyStatus(err error) int {
	if shared.IsValidation(err) {
		return http.StatusBadRequest
	}
	if shared.IsConfiguration(err) {
		return http.StatusInternalServerError
	}

	var agg *tasks.AggregateBatchFailure
	if errors.As(err, &agg) && agg.RateLimited() {
		return http.StatusServiceUnavailable
	}
	if services.IsRateLimited(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// SpotifyToken handles POST /spotify/token
func (a *API) SpotifyToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.tokens == nil {
		writeError(w, http.StatusInternalServerError, (&shared.ConfigurationError{Key: "credentials.spotify"}).Error())
		return
	}

	a.logger.Info("token exchange requested", "redirect_uri", req.RedirectURI)
	token, err := a.tokens.Exchange(r.Context(), req.Code, req.RedirectURI)
	if err != nil {
		status := http.StatusBadRequest
		if shared.IsConfiguration(err) {
			status = http.StatusInternalServerError
		}
		a.logger.Error("token exchange failed", "status", status, "error", err)
		writeError(w, status, err.Error())
		return
	}

	resp := tokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		resp.ExpiresIn = int(time.Until(token.Expiry).Round(time.Second).Seconds())
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	writeJSON(w, http.StatusOK, resp)
}

// SavePlaylists handles POST /save_playlists
func (a *API) SavePlaylists(w http.ResponseWriter, r *http.Request) {
	var req savePlaylistsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.writer == nil {
		writeError(w, http.StatusInternalServerError, (&shared.ConfigurationError{Key: "credentials.spotify"}).Error())
		return
	}

	a.logger.Info("save requested", "categories", len(req.GroupedTracks))
	token := &oauth2.Token{AccessToken: strings.TrimSpace(req.AccessToken), TokenType: "Bearer"}

	result, err := a.writer.SaveGrouped(r.Context(), token, req.SaveRequest)
	if err != nil {
		status := SaveStatus(err)
		detail := err.Error()
		if status == http.StatusInternalServerError {
			detail = fmt.Sprintf("failed to save playlists: %v", err)
		}
		a.logger.Error("save failed", "status", status, "error", err)
		writeError(w, status, detail)
		return
	}

	a.logger.Info("save finished", "created", len(result.CreatedPlaylists), "skipped", len(result.Skipped))
	writeJSON(w, http.StatusOK, result)
}

// SaveStatus maps a playlist-writer error onto an HTTP status:
// 401 for rejected tokens, 400 for provider and input errors, 500 otherwise.
func SaveStatus(err error) int {
	switch {
	case services.IsUnauthorized(err):
		return http.StatusUnauthorized
	case shared.IsValidation(err),
		errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrRateLimited):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
