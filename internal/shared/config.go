package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	Artifacts   ArtifactsConfig   `toml:"artifacts"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify    SpotifyConfig    `toml:"spotify"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Anthropic  AnthropicConfig  `toml:"anthropic"`
}

// SpotifyConfig contains Spotify API credentials and the last user token obtained via OAuth.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// OpenRouterConfig contains settings for the OpenRouter chat completions API.
type OpenRouterConfig struct {
	APIKey      string `toml:"api_key"`
	APIBase     string `toml:"api_base"`
	Model       string `toml:"model"`
	HTTPReferer string `toml:"http_referer"`
	AppTitle    string `toml:"app_title"`
}

// AnthropicConfig contains settings for the Anthropic messages API.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ClassifierConfig controls batching, retries and failure policy of a classification run.
type ClassifierConfig struct {
	Provider         string `toml:"provider"`
	BatchSize        int    `toml:"batch_size"`
	MaxRetries       int    `toml:"max_retries"`
	DelayMS          int    `toml:"delay_ms"`
	FailOnBatchError bool   `toml:"fail_on_batch_error"`
	SynonymsPath     string `toml:"synonyms_path"`
}

// ArtifactsConfig controls where observability artifacts are written.
type ArtifactsConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	CORSOriginRegex string   `toml:"cors_origin_regex"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Map returns the credentials in the shape expected by the Spotify service constructor.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the stored user token, or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.Expiry,
	}
}

// Update stores a freshly issued token.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.Expiry = token.Expiry
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveConfig encodes the config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveConfig loads path when it exists and falls back to defaults otherwise.
// Environment overrides are applied in both cases.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// ApplyEnv overrides config values with environment variables.
//
// lookup is usually [os.LookupEnv]; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(field *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
	num := func(field *int, key string) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*field = n
			}
		}
	}

	str(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	str(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	str(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	str(&c.Credentials.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	str(&c.Credentials.OpenRouter.APIBase, "OPENROUTER_API_BASE")
	str(&c.Credentials.OpenRouter.Model, "OPENROUTER_MODEL")
	str(&c.Credentials.OpenRouter.HTTPReferer, "OPENROUTER_HTTP_REFERER")
	str(&c.Credentials.OpenRouter.AppTitle, "OPENROUTER_APP_TITLE")
	str(&c.Credentials.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	str(&c.Classifier.Provider, "CLASSIFY_PROVIDER")
	num(&c.Classifier.MaxRetries, "OPENROUTER_MAX_RETRIES")
	num(&c.Classifier.BatchSize, "CLASSIFY_BATCH_SIZE")
	num(&c.Classifier.DelayMS, "CLASSIFY_DELAY_MS")

	if v, ok := lookup("CLASSIFY_FAIL_ON_BATCH_ERROR"); ok {
		c.Classifier.FailOnBatchError = ParseBool(v)
	}

	if v, ok := lookup("CORS_ORIGINS"); ok {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v, ok := lookup("CORS_ORIGIN_REGEX"); ok {
		c.Server.CORSOriginRegex = strings.TrimSpace(v)
	}
}

// ParseBool accepts 1/true/yes/on (any case) as true; everything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
