package cli

import (
	"fmt"
	"time"

	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/spf13/cobra"
)

// newTokenCommand mints a bearer token signed with auth.jwt_secret, for local
// testing against a running server.
func newTokenCommand() *cobra.Command {
	var (
		subject    string
		businesses []string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			token, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(subject, businesses, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-dev", "Token subject")
	cmd.Flags().StringSliceVar(&businesses, "business", nil, "Business IDs the token may act for")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
