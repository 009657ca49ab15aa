// Package basixcmder builds the basix command tree.
package basixcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/gmoreiraDEV/basix-engine/cmd/basix/chat"
	runoncecmder "github.com/gmoreiraDEV/basix-engine/cmd/basix/runonce"
	servecmder "github.com/gmoreiraDEV/basix-engine/cmd/basix/serve"
	configx "github.com/gmoreiraDEV/basix-engine/pkg/config"
	logx "github.com/gmoreiraDEV/basix-engine/pkg/logger"
)

const basixLongDesc string = `basix-engine is the scheduling assistant for the salon.

Run it using:
  basix serve       Run the HTTP server
  basix run-once    Handle one JSON request read from stdin
  basix chat        Chat with the assistant in the terminal`

const basixShortDesc string = "basix-engine - scheduling assistant"

func NewBasixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "basix",
		Short:         basixShortDesc,
		Long:          basixLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env")
			if err != nil {
				return err
			}
			configx.SetEnvFile(envFile)

			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logCfg.Debug = true
			}
			logx.Init(*logCfg)
			return nil
		},
	}

	cmd.PersistentFlags().String("env", "", "Path to a .env file")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(runoncecmder.NewRunOnceCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())

	return cmd
}
