package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
)

// NewTokenCmd prints a signed bearer token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID, name, ttl string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(cfg.Auth.Secret)
			if err != nil {
				return err
			}
			lifetime := config.TTLDuration(ttl, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
			token, err := tokens.Issue(domain.Identity{UserID: userID, Name: name}, lifetime)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed")
	cmd.Flags().StringVar(&name, "name", "", "display name to embed")
	cmd.Flags().StringVar(&ttl, "ttl", "", "token lifetime, e.g. 2h (defaults to auth.tokenTTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
