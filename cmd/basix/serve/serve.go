// Package servecmder provides the serve command.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gmoreiraDEV/basix-engine/cmd/basix/bootstrap"
	configx "github.com/gmoreiraDEV/basix-engine/pkg/config"
	"github.com/gmoreiraDEV/basix-engine/pkg/httpapi"
)

type serveCommander struct {
	listen string
}

const serveLongDesc string = `Run the HTTP server.

Endpoints:
  GET  /ping          Health check
  POST /v1/messages   Handle one customer message`

const serveShortDesc string = "Run the HTTP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.Flags().Changed("listen"))
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", ":8080", "Address to listen on")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, listenSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	httpCfg, err := configx.New[httpapi.Config]("HTTP")
	if err != nil {
		return err
	}
	if listenSet || httpCfg.ListenAddr == "" {
		httpCfg.ListenAddr = c.listen
	}

	app, err := bootstrap.Build(ctx)
	if err != nil {
		return fmt.Errorf("building assistant: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("closing resources")
		}
	}()

	server, err := httpapi.NewServer(*httpCfg, app.Assistant)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		return server.Shutdown()
	}
}
