package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyClient is the Spotify surface the commands use. [services.SpotifyService] implements it.
type SpotifyClient interface {
	services.TrackSource
	services.PlaylistWriter
	Info(ctx context.Context, ref string) (*models.PlaylistInfo, error)
	AuthURL(state string) string
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    SpotifyClient
	generator  services.TextGenerator
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Spotify and Generator are built from the config on first use when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    SpotifyClient
	Generator  services.TextGenerator
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		generator:  opts.Generator,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, classifyCommand, playlistCommand, spotifyCommand, runsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves the config file named by --config and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	config, err := shared.ResolveConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configPath = path

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// spotifyClient returns the injected client or builds one from the Spotify credentials.
func (r *Runner) spotifyClient() SpotifyClient {
	if r.spotify == nil {
		r.spotify = services.NewSpotifyService(
			r.config.Credentials.Spotify.Map(),
			services.WithSpotifyHTTPClient(r.httpClient),
			services.WithSpotifyLogger(shared.WithLogger(r.logger, "service", "spotify")),
		)
	}
	return r.spotify
}

// textGenerator returns the injected generator or the one named by classifier.provider.
func (r *Runner) textGenerator() (services.TextGenerator, error) {
	if r.generator != nil {
		return r.generator, nil
	}

	var (
		gen services.TextGenerator
		err error
	)
	switch provider := r.config.Classifier.Provider; provider {
	case "", "openrouter":
		gen, err = services.NewOpenRouterGenerator(r.config.Credentials.OpenRouter, nil)
	case "anthropic":
		gen, err = services.NewAnthropicGenerator(r.config.Credentials.Anthropic)
	default:
		return nil, shared.NewValidationError("classifier.provider", "unknown provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	r.generator = gen
	return gen, nil
}

// userToken returns the token passed on the command line, falling back to the one saved by `spotify auth`.
func (r *Runner) userToken(flag string) (*oauth2.Token, error) {
	if flag != "" {
		return &oauth2.Token{AccessToken: flag, TokenType: "Bearer"}, nil
	}
	if token := r.config.Credentials.Spotify.Token(); token != nil {
		return token, nil
	}
	return nil, fmt.Errorf("%w: run 'moodsplit spotify auth' or pass --token", shared.ErrNotAuthenticated)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		return r.writePlain("\n")
	}
	return nil
}
