// Command devtoken issues access tokens for users in the store directory so the
// API can be exercised locally.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DossaniParadise/rm-tracker/internal/auth"
	"github.com/DossaniParadise/rm-tracker/internal/config"
	"github.com/DossaniParadise/rm-tracker/internal/directory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		email         string
		directoryPath string
		ttlMinutes    int
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Issue a bearer token for a directory user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if directoryPath == "" {
				directoryPath = cfg.Tracker.DirectoryPath
			}
			if ttlMinutes <= 0 {
				ttlMinutes = cfg.Auth.AccessTokenTTLMinutes
			}

			dir, err := directory.Load(directoryPath)
			if err != nil {
				return err
			}
			actor, ok := dir.Actor(email)
			if !ok {
				return fmt.Errorf("%s is not in the directory", email)
			}

			token, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttlMinutes).GenerateToken(actor.Email, actor.Name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s (%s), expires %s\n", actor.DisplayName(), actor.Role, expiresAt.Format(time.RFC3339))
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "directory user to issue the token for")
	cmd.Flags().StringVar(&directoryPath, "directory", "", "directory YAML (defaults to DIRECTORY_PATH or the embedded directory)")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 0, "token lifetime in minutes (defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
