package main

import (
	"errors"
	"fmt"
	"time"

	httpAdapter "github.com/picloud/picloud/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Issue a bearer token for the state-changing routes",
	Long: `Signs a token with the configured auth secret (PICLOUD_AUTH_SECRET).
Send it as "Authorization: Bearer <token>" to POST /dispatch and /debug.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.AuthSecret == "" {
			return errors.New("no auth secret configured")
		}
		subject := "cli"
		if len(args) == 1 {
			subject = args[0]
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := httpAdapter.IssueToken([]byte(cfg.AuthSecret), subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "How long the token stays valid")
}
