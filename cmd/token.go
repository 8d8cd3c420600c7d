package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/config"
	"github.com/abhisek/rutealo/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <learner>",
	Short: "Issue a bearer token for a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("RUTEALO_JWT_SECRET is not set")
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		tok, err := server.SignLearnerToken(cfg.Auth.JWTSecret, args[0], ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
