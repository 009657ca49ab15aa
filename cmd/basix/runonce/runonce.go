// Package runoncecmder handles a single request read from stdin.
package runoncecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
	"github.com/gmoreiraDEV/basix-engine/cmd/basix/bootstrap"
)

const runOnceLongDesc string = `Read one JSON request from stdin and print the response envelope.

Input fields: message, user_id, session_id, customer_profile,
appointment_context, policies_context.

Example:
  echo '{"message":"quero agendar","user_id":"555"}' | basix run-once`

type Handler interface {
	Handle(ctx context.Context, req assistant.Request) (assistant.Envelope, error)
}

func NewRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Handle one JSON request from stdin",
		Long:  runOnceLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
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
			return Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), app.Assistant)
		},
	}
}

// Run always prints an envelope; the returned error mirrors a failed turn.
func Run(ctx context.Context, in io.Reader, out io.Writer, h Handler) error {
	var req assistant.Request
	env := assistant.Envelope{}
	var runErr error

	if err := json.NewDecoder(in).Decode(&req); err != nil {
		runErr = fmt.Errorf("decode request: %w", err)
		env.Error = runErr.Error()
	} else {
		env, runErr = h.Handle(ctx, req)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return runErr
}
