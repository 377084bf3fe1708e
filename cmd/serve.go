package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodsplit/internal/server"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/urfave/cli/v3"
)

// newRouter builds the API router with logging, panic recovery and CORS.
func (r *Runner) newRouter(api *server.API) (*server.BasicRouter, error) {
	cors, err := server.CORS(r.config.Server.CORSOrigins, r.config.Server.CORSOriginRegex)
	if err != nil {
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger), server.Recover(r.logger), cors)
	api.Register(router)
	return router, nil
}

// newAPI wires the HTTP handlers. Missing AI credentials only disable /classify.
func (r *Runner) newAPI() (*server.API, func(), error) {
	var classifier server.ClassifyRunner

	engine, cleanup, err := r.newEngine()
	switch {
	case err == nil:
		classifier = engine
	case shared.IsConfiguration(err):
		r.logger.Warn("classification disabled", "error", err)
	default:
		return nil, cleanup, err
	}

	spotify := r.spotifyClient()
	api := server.NewAPI(spotify, classifier, spotify, spotify, server.WithAPILogger(r.logger))
	return api, cleanup, nil
}

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	api, cleanup, err := r.newAPI()
	if err != nil {
		return err
	}
	defer cleanup()

	router, err := r.newRouter(api)
	if err != nil {
		return fmt.Errorf("failed to configure CORS: %w", err)
	}

	return server.ListenAndServe(ctx, r.config.Server.Addr(), router, r.logger)
}
