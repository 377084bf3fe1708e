package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/moodsplit/internal/server"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout bounds how long the callback server waits for the browser.
const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens browser for user authorization, and saves the issued token to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return &shared.ConfigurationError{Key: "credentials.spotify.client_id/client_secret"}
	}

	addr, err := callbackAddr(creds.RedirectURI)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, addr)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}
	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: moodsplit playlist save --input result.json\n")

	return nil
}

// callbackAddr returns the host:port the redirect URI points at.
func callbackAddr(redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", shared.NewValidationError("credentials.spotify.redirect_uri", "invalid redirect URI %q", redirectURI)
	}
	if u.Path != "/callback" {
		return "", shared.NewValidationError("credentials.spotify.redirect_uri", "path must be /callback, got %q", u.Path)
	}
	if u.Port() == "" {
		return u.Hostname() + ":80", nil
	}
	return u.Host, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, addr string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	spotify := r.spotifyClient()
	authURL := spotify.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(spotify, state)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	serverCtx, stopServer := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe(serverCtx, addr, router, r.logger)
	}()
	exited := false
	defer func() {
		stopServer()
		if exited {
			return
		}
		if err := <-serverErrors; err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		exited = true
		if err == nil {
			err = fmt.Errorf("callback server stopped")
		}
		return nil, err
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
