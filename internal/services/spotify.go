// Spotify Web API implementation of [TrackSource] and [PlaylistWriter]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAccountsURL = "https://accounts.spotify.com"
	spotifyBaseURL     = "https://api.spotify.com/v1"

	spotifyPageSize      = 100
	spotifyFeatureChunk  = 100
	spotifyTrackChunk    = 100
	spotifyExampleTracks = 10
	spotifyTrackFields   = "items(track(id,name,artists(name),external_urls(spotify))),next,total"
	spotifyDefaultRPS    = 10

	UnknownArtist = "Bilinmeyen"
	UnknownTrack  = "Bilinmeyen Şarkı"

	SkipReasonNoTracks     = "Bu kategori için şarkı bulunamadı"
	SkipReasonCreateFailed = "Playlist oluşturulamadı"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a simplified artist.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyTrack represents the track fields requested from the playlist items endpoint.
type SpotifyTrack struct {
	ID           *string         `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed items.
type SpotifyPlaylistTrack struct {
	Track *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
	Total int                    `json:"total"`
}

// SpotifyAudioFeatures represents the audio features object.
type SpotifyAudioFeatures struct {
	ID string `json:"id"`
	models.AudioFeatures
}

// SpotifyPlaylist represents a created playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// SpotifyService reads playlists with app credentials and writes playlists with a user token.
type SpotifyService struct {
	config     *oauth2.Config
	app        *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyEndpoints points the service at different API and accounts hosts.
func WithSpotifyEndpoints(apiURL, accountsURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.baseURL = strings.TrimRight(apiURL, "/")
		accountsURL = strings.TrimRight(accountsURL, "/")
		s.config.Endpoint = oauth2.Endpoint{AuthURL: accountsURL + "/authorize", TokenURL: accountsURL + "/api/token"}
		s.app.TokenURL = accountsURL + "/api/token"
	}
}

// WithSpotifyHTTPClient sets the base client used for API and token requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRateLimit caps outgoing API requests per second. Non-positive means unlimited.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithSpotifyLogger sets the service logger.
func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpotifyService creates a Spotify service from "client_id", "client_secret" and "redirect_uri".
//
// Missing credentials are reported when an operation needs them, since saving playlists only needs a user token.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) *SpotifyService {
	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     credentials["client_id"],
			ClientSecret: credentials["client_secret"],
			RedirectURL:  redirectURI,
			Scopes: []string{
				"user-read-private",
				"playlist-read-private",
				"playlist-modify-public",
				"playlist-modify-private",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAccountsURL + "/authorize",
				TokenURL: spotifyAccountsURL + "/api/token",
			},
		},
		app: &clientcredentials.Config{
			ClientID:     credentials["client_id"],
			ClientSecret: credentials["client_secret"],
			TokenURL:     spotifyAccountsURL + "/api/token",
		},
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(spotifyDefaultRPS), 1),
		logger:     shared.DiscardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// unsetCredential reports an empty value or a "your_..." placeholder left over from an older generated config.
func unsetCredential(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(v, "your_")
}

func (s *SpotifyService) checkCredentials() error {
	if unsetCredential(s.config.ClientID) {
		return &shared.ConfigurationError{Key: "credentials.spotify.client_id"}
	}
	if unsetCredential(s.config.ClientSecret) {
		return &shared.ConfigurationError{Key: "credentials.spotify.client_secret"}
	}
	return nil
}

// clientContext makes oauth2 use the configured base client for token requests.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a user token. An empty redirectURI uses the configured one.
func (s *SpotifyService) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if err := s.checkCredentials(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("code", "authorization code must not be empty")
	}

	cfg := *s.config
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	token, err := cfg.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs a rate-limited JSON request and maps error statuses onto shared sentinels.
func (s *SpotifyService) doRequest(ctx context.Context, client *http.Client, method, endpoint string, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spotify rate limiter: %w", err)
	}

	resp, err := NewAPIClient(s.baseURL, client).Do(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode >= 400 {
		sentinel := shared.ErrAPIRequest
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			sentinel = shared.ErrTokenExpired
		case http.StatusNotFound:
			sentinel = shared.ErrPlaylistNotFound
		case http.StatusTooManyRequests:
			sentinel = shared.ErrRateLimited
		}
		return fmt.Errorf("%w: spotify API error (%d): %s", sentinel, resp.StatusCode, strings.TrimSpace(resp.Text()))
	}

	if result != nil {
		return resp.Decode(result)
	}
	return nil
}

// PlaylistTracks fetches all tracks of a playlist with client credentials and attaches audio features.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error) {
	if err := s.checkCredentials(); err != nil {
		return nil, err
	}

	playlistID, err := ExtractPlaylistID(ref)
	if err != nil {
		return nil, err
	}

	client := s.app.Client(s.clientContext(ctx))
	s.logger.Info("fetching playlist tracks", "playlist_id", playlistID)

	var tracks []models.Track
	for offset := 0; ; offset += spotifyPageSize {
		query := url.Values{}
		query.Set("offset", fmt.Sprint(offset))
		query.Set("limit", fmt.Sprint(spotifyPageSize))
		query.Set("fields", spotifyTrackFields)

		var page SpotifyPlaylistTracks
		endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", playlistID, query.Encode())
		if err := s.doRequest(ctx, client, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, toTrack(*item.Track))
		}

		if page.Next == nil {
			break
		}
	}

	s.attachAudioFeatures(ctx, client, tracks)
	s.logger.Info("fetched playlist tracks", "playlist_id", playlistID, "total", len(tracks))
	return tracks, nil
}

func toTrack(st SpotifyTrack) models.Track {
	artist := UnknownArtist
	if len(st.Artists) > 0 && st.Artists[0].Name != "" {
		artist = st.Artists[0].Name
	}
	name := st.Name
	if name == "" {
		name = UnknownTrack
	}

	var id *string
	if st.ID != nil && *st.ID != "" {
		id = st.ID
	}

	return models.Track{ID: id, Name: name, Artist: artist, URL: st.ExternalURLs.Spotify}
}

// attachAudioFeatures fills AudioFeatures in place. A failed chunk is logged and leaves its tracks without features.
func (s *SpotifyService) attachAudioFeatures(ctx context.Context, client *http.Client, tracks []models.Track) {
	var ids []string
	for _, t := range tracks {
		if id := t.TrackID(); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}

	features := make(map[string]models.AudioFeatures, len(ids))
	for _, chunk := range shared.Chunk(ids, spotifyFeatureChunk) {
		chunkFeatures, err := s.AudioFeatures(ctx, client, chunk)
		if err != nil {
			s.logger.Warn("audio features unavailable for chunk", "ids", len(chunk), "error", err)
			continue
		}
		for _, f := range chunkFeatures {
			features[f.ID] = f.AudioFeatures
		}
	}

	for i := range tracks {
		if f, ok := features[tracks[i].TrackID()]; ok {
			tracks[i].AudioFeatures = &f
		}
	}
}

// AudioFeatures fetches features for up to 100 track IDs. Unknown IDs are omitted from the result.
func (s *SpotifyService) AudioFeatures(ctx context.Context, client *http.Client, ids []string) ([]SpotifyAudioFeatures, error) {
	if len(ids) > spotifyFeatureChunk {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, spotifyFeatureChunk)
	}

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}
	endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := s.doRequest(ctx, client, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	var out []SpotifyAudioFeatures
	for _, f := range response.AudioFeatures {
		if f != nil && f.ID != "" {
			out = append(out, *f)
		}
	}
	return out, nil
}

// Info fetches the playlist and returns its size with the first ten tracks.
func (s *SpotifyService) Info(ctx context.Context, ref string) (*models.PlaylistInfo, error) {
	playlistID, err := ExtractPlaylistID(ref)
	if err != nil {
		return nil, err
	}

	tracks, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistInfo{
		PlaylistID:   playlistID,
		TotalSongs:   len(tracks),
		ExampleBatch: tracks[:min(spotifyExampleTracks, len(tracks))],
	}, nil
}

// UserProfile retrieves the profile of the token's owner.
func (s *SpotifyService) UserProfile(ctx context.Context, client *http.Client) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, client, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PlaylistName returns the caller-supplied name for label or "<Label> Şarkılar".
func PlaylistName(label string, names map[string]string) string {
	if name := strings.TrimSpace(names[label]); name != "" {
		return name
	}
	return shared.Capitalize(label) + " Şarkılar"
}

// SaveGrouped creates one playlist per label that has at least one track ID and fills it.
// Labels are processed in sorted order.
func (s *SpotifyService) SaveGrouped(ctx context.Context, token *oauth2.Token, req models.SaveRequest) (*models.SaveResult, error) {
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("%w: access token required", shared.ErrNotAuthenticated)
	}

	client := s.config.Client(s.clientContext(ctx), token)
	user, err := s.UserProfile(ctx, client)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: spotify user profile has no id", shared.ErrAPIRequest)
	}

	labels := make([]string, 0, len(req.GroupedTracks))
	for label := range req.GroupedTracks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	result := &models.SaveResult{CreatedPlaylists: []models.CreatedPlaylist{}, Skipped: []models.SkippedPlaylist{}}
	for _, label := range labels {
		var uris []string
		for _, t := range req.GroupedTracks[label] {
			if t.ID != nil && *t.ID != "" {
				uris = append(uris, "spotify:track:"+*t.ID)
			}
		}
		s.logger.Info("saving category", "emotion", label, "tracks", len(uris))

		if len(uris) == 0 {
			result.Skipped = append(result.Skipped, models.SkippedPlaylist{Emotion: label, Reason: SkipReasonNoTracks})
			continue
		}

		name := PlaylistName(label, req.PlaylistNames)
		var created SpotifyPlaylist
		payload := map[string]any{
			"name":        name,
			"description": fmt.Sprintf("Playlist Classifier tarafından '%s' kategorisinde oluşturuldu.", label),
			"public":      req.Public,
		}
		if err := s.doRequest(ctx, client, http.MethodPost, "/users/"+url.PathEscape(user.ID)+"/playlists", payload, &created); err != nil {
			return nil, err
		}
		if created.ID == "" {
			result.Skipped = append(result.Skipped, models.SkippedPlaylist{Emotion: label, Reason: SkipReasonCreateFailed})
			continue
		}

		for _, chunk := range shared.Chunk(uris, spotifyTrackChunk) {
			endpoint := "/playlists/" + url.PathEscape(created.ID) + "/tracks"
			if err := s.doRequest(ctx, client, http.MethodPost, endpoint, map[string]any{"uris": chunk}, nil); err != nil {
				return nil, err
			}
		}

		result.CreatedPlaylists = append(result.CreatedPlaylists, models.CreatedPlaylist{
			Emotion:      label,
			PlaylistID:   created.ID,
			PlaylistName: name,
			PlaylistURL:  created.ExternalURLs.Spotify,
			AddedTracks:  len(uris),
		})
		s.logger.Info("playlist created", "name", name, "tracks", len(uris))
	}

	return result, nil
}

// IsUnauthorized reports whether err came from a rejected or expired user token.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		return true
	}
	lowered := strings.ToLower(err.Error())
	return strings.Contains(lowered, "(401)") ||
		strings.Contains(lowered, "invalid access token") ||
		strings.Contains(lowered, "token expired")
}

var (
	_ TrackSource    = (*SpotifyService)(nil)
	_ PlaylistWriter = (*SpotifyService)(nil)
)
