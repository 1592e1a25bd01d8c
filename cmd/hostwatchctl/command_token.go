package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hostwatch/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		username string
		roles    []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with HOSTWATCH_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if cfg.UsingDefaultSecret() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: HOSTWATCH_JWT_SECRET is not set; token uses the development secret")
			}
			expiry := cfg.TokenExpiry
			if ttl > 0 {
				expiry = ttl
			}
			name := strings.TrimSpace(username)
			if name == "" {
				name = cfg.AdminUser
			}
			auth := middleware.NewAuthService(cfg.JWTSecret, expiry)
			token, err := auth.GenerateToken(uuid.NewString(), name, roles)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Display name carried in the token (default: HOSTWATCH_ADMIN_USER)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{middleware.RoleAdmin}, "Role to grant (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: HOSTWATCH_JWT_EXPIRE_MINUTES)")
	return cmd
}
