package main

import (
	"fmt"
	"time"

	"github.com/knoguchi/editorialbot/internal/auth"
	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenReader  string
	tokenExpiry  time.Duration
	tokenRefresh string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue or refresh a reader token",
	Long: `Signs a bearer token for --reader with JWT_SECRET, or re-issues the
token given with --refresh. Clients send it as "authorization: Bearer <token>".`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenReader, "reader", "", "Reader the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "Token lifetime (default JWT_EXPIRY)")
	tokenCmd.Flags().StringVar(&tokenRefresh, "refresh", "", "Existing token to re-issue")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	manager := auth.NewJWTManager(&auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
		Issuer: cfg.JWTIssuer,
	})

	var token string
	switch {
	case tokenRefresh != "":
		token, err = manager.RefreshToken(tokenRefresh)
	case tokenReader == "":
		return fmt.Errorf("either --reader or --refresh is required")
	case tokenExpiry > 0:
		token, err = manager.GenerateTokenWithExpiry(tokenReader, tokenExpiry)
	default:
		token, err = manager.GenerateToken(tokenReader)
	}
	if err != nil {
		return err
	}

	expiry, err := manager.TokenExpiry(token)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires %s\n", expiry.Format(time.RFC3339))
	return nil
}
