package main

import (
	"fmt"

	"callroom/internal/core/domain"
	"callroom/internal/core/services"
	"callroom/pkg/validation"

	"github.com/spf13/cobra"
)

var (
	flagUserID     string
	flagName       string
	flagProfileURL string
	flagRefresh    bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validation.ValidateUserID(flagUserID); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		auth := services.NewAuthService(
			cfg.Auth.JWTSecret,
			cfg.RefreshSigningSecret(),
			cfg.Auth.Issuer,
			cfg.Auth.AccessTokenTTL,
			cfg.Auth.RefreshTokenTTL,
		)

		identity := domain.Identity{
			UserID:     domain.UserID(flagUserID),
			Name:       flagName,
			ProfileURL: flagProfileURL,
		}
		access, err := auth.GenerateToken(identity)
		if err != nil {
			return fmt.Errorf("failed to sign access token: %w", err)
		}

		rows := [][]string{
			{"User", flagUserID},
			{"Access token", access},
			{"Expires in", cfg.Auth.AccessTokenTTL.String()},
		}
		if flagRefresh {
			refresh, err := auth.GenerateRefreshToken(identity.UserID)
			if err != nil {
				return fmt.Errorf("failed to sign refresh token: %w", err)
			}
			rows = append(rows, []string{"Refresh token", refresh})
		}

		fmt.Fprintln(cmd.OutOrStdout(), keyValueView(rows))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&flagUserID, "user-id", "u", "", "User id carried in the token")
	tokenCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	tokenCmd.Flags().StringVar(&flagProfileURL, "profile-url", "", "Profile image URL")
	tokenCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Also mint a refresh token")
	tokenCmd.MarkFlagRequired("user-id")
}
