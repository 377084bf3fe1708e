package shared

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./moodsplit.db" {
			t.Errorf("expected database path ./moodsplit.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8000 {
			t.Errorf("expected server port 8000, got %d", config.Server.Port)
		}
		if config.Classifier.BatchSize != 20 {
			t.Errorf("expected batch size 20, got %d", config.Classifier.BatchSize)
		}
		if config.Classifier.MaxRetries != 3 {
			t.Errorf("expected max retries 3, got %d", config.Classifier.MaxRetries)
		}
		if config.Classifier.DelayMS != 250 {
			t.Errorf("expected delay 250ms, got %d", config.Classifier.DelayMS)
		}
		if !config.Classifier.FailOnBatchError {
			t.Error("expected fail_on_batch_error to default to true")
		}
		if config.Credentials.OpenRouter.APIBase != "https://openrouter.ai/api/v1" {
			t.Errorf("unexpected openrouter api base %s", config.Credentials.OpenRouter.APIBase)
		}
		if config.Credentials.Spotify.ClientID != "" || config.Credentials.Spotify.ClientSecret != "" {
			t.Errorf("expected empty spotify credentials, got %q/%q",
				config.Credentials.Spotify.ClientID, config.Credentials.Spotify.ClientSecret)
		}
		if len(config.Server.CORSOrigins) != 2 {
			t.Errorf("expected 2 default CORS origins, got %d", len(config.Server.CORSOrigins))
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[classifier]
batch_size = 5
fail_on_batch_error = false

[credentials.openrouter]
api_key = "sk-test"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Classifier.BatchSize != 5 {
			t.Errorf("expected batch size 5, got %d", config.Classifier.BatchSize)
		}
		if config.Classifier.FailOnBatchError {
			t.Error("expected fail_on_batch_error false")
		}
		if config.Classifier.MaxRetries != 3 {
			t.Errorf("expected default max retries 3, got %d", config.Classifier.MaxRetries)
		}
		if config.Credentials.OpenRouter.APIKey != "sk-test" {
			t.Errorf("expected api key sk-test, got %s", config.Credentials.OpenRouter.APIKey)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[classifier\nbatch_size = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		if err := config.Credentials.Spotify.Update(&oauth2.Token{AccessToken: "abc", RefreshToken: "def"}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		token := loaded.Credentials.Spotify.Token()
		if token == nil || token.AccessToken != "abc" || token.RefreshToken != "def" {
			t.Errorf("expected saved token, got %+v", token)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENROUTER_API_KEY":           "sk-env",
		"OPENROUTER_MAX_RETRIES":       "5",
		"CLASSIFY_BATCH_SIZE":          "10",
		"CLASSIFY_DELAY_MS":            "0",
		"CLASSIFY_FAIL_ON_BATCH_ERROR": "off",
		"CORS_ORIGINS":                 "http://a.test, ,http://b.test",
		"SPOTIFY_CLIENT_ID":            "  id  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	config := DefaultConfig()
	config.ApplyEnv(lookup)

	if config.Credentials.OpenRouter.APIKey != "sk-env" {
		t.Errorf("expected api key from env, got %s", config.Credentials.OpenRouter.APIKey)
	}
	if config.Classifier.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", config.Classifier.MaxRetries)
	}
	if config.Classifier.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", config.Classifier.BatchSize)
	}
	if config.Classifier.DelayMS != 0 {
		t.Errorf("expected delay 0, got %d", config.Classifier.DelayMS)
	}
	if config.Classifier.FailOnBatchError {
		t.Error("expected fail_on_batch_error false from env")
	}
	if len(config.Server.CORSOrigins) != 2 || config.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected CORS origins %v", config.Server.CORSOrigins)
	}
	if config.Credentials.Spotify.ClientID != "id" {
		t.Errorf("expected trimmed client id, got %q", config.Credentials.Spotify.ClientID)
	}
}

func TestParseBool(t *testing.T) {
	tc := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"TRUE", true},
		{" yes ", true},
		{"on", true},
		{"0", false},
		{"no", false},
		{"", false},
	}

	for _, tt := range tc {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
