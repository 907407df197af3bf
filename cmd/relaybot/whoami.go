package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdelaire/relaybot/adapters/httptransport"
	"github.com/jdelaire/relaybot/adapters/telegram_api"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the token and print the bot identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			token, err := resolveToken()
			if err != nil {
				return err
			}

			api := telegram_api.New(httptransport.New(10*time.Second), token).WithBaseURL(cfg.BaseURL)
			me, err := api.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "@%s (id %d, %s)\n", me.UserName, me.ID, me.FirstName)
			return nil
		},
	}
}
