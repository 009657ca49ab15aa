// Package chatcmder provides an interactive terminal chat with the assistant.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
	"github.com/gmoreiraDEV/basix-engine/cmd/basix/bootstrap"
)

var exitWords = map[string]bool{"sair": true, "exit": true, "quit": true}

type Handler interface {
	Handle(ctx context.Context, req assistant.Request) (assistant.Envelope, error)
}

type chatCommander struct {
	userID    string
	sessionID string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long:  "Start an interactive chat. Type sair, exit or quit to leave.",
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

			sessionID := cmder.sessionID
			if sessionID == "" {
				sessionID = assistant.DefaultSessionID(cmder.userID, time.Now())
			}
			return Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), app.Assistant, cmder.userID, sessionID)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user-id", "u", "cli-user", "User id sent with every message")
	cmd.Flags().StringVarP(&cmder.sessionID, "session-id", "s", "", "Session id (default: generated)")

	return cmd
}

// Run keeps one session for the whole loop. It stops on an exit word, on EOF
// or when the assistant closes the session.
func Run(ctx context.Context, in io.Reader, out io.Writer, h Handler, userID, sessionID string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Digite sua mensagem (sair para encerrar).")

	for {
		fmt.Fprint(out, "você> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if exitWords[strings.ToLower(text)] {
			fmt.Fprintln(out, "Até logo!")
			return nil
		}

		env, err := h.Handle(ctx, assistant.Request{Message: text, UserID: userID, SessionID: sessionID})
		if err != nil {
			fmt.Fprintf(out, "erro: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "maria> %s\n", env.Response)
		if env.Metadata != nil && env.Metadata.FinishSession {
			return nil
		}
	}
}
