package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/token"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Refresh expiring OAuth tokens once and exit",
		Long: `Run a single token maintenance sweep over all stored accounts.

OAuth accounts with expired or expiring access tokens are refreshed.
Accounts whose tokens stay unrefreshable long past expiry are marked as
needing re-authentication. Password accounts are untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("MAILBRIDGE_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logLevel := slog.LevelInfo
			if debugMode {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

			st := store.New(cfg.Store.Path)
			tokens := token.NewManager(st, cfg, nil, logger)

			res, err := tokens.Sweep(context.Background())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Printf("Checked %d account(s): %d refreshed, %d disabled\n",
				res.Checked, res.Refreshed, res.Disabled)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the mailbridge TOML config file. Can also use MAILBRIDGE_CONFIG env var.")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}
