package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/mailbox"
	"github.com/mailtools/mailbridge/internal/provider"
	"github.com/mailtools/mailbridge/internal/store"
)

func newAccountsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage stored mail accounts",
		Long: `Inspect and manage the local account store.

Accounts can be added here or through the mail_login MCP tool; both
verify the credentials against the mail server before storing them.
Listing, removing, and choosing the default account work offline.`,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the mailbridge TOML config file. Can also use MAILBRIDGE_CONFIG env var.")

	cmd.AddCommand(newAccountsListCmd(&configPath))
	cmd.AddCommand(newAccountsAddCmd(&configPath))
	cmd.AddCommand(newAccountsRemoveCmd(&configPath))
	cmd.AddCommand(newAccountsSetDefaultCmd(&configPath))

	return cmd
}

func loadConfig(configPath string) (config.Config, error) {
	if configPath == "" {
		configPath = os.Getenv("MAILBRIDGE_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func openStore(configPath string) (*store.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.Store.Path), nil
}

func newAccountsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			recs, err := st.ListAll()
			if err != nil {
				return fmt.Errorf("failed to read account store: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("No accounts stored. Use the mail_login MCP tool to add one.")
				return nil
			}
			defaultAddr, err := st.DefaultAddress()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tNAME\tAUTH\tSERVER\tSTATUS")
			for _, rec := range recs {
				marker := ""
				if rec.Address == defaultAddr {
					marker = " *"
				}
				status := "active"
				if !rec.Active {
					status = "needs re-auth"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n",
					rec.Address, marker, rec.DisplayName, rec.AuthMode, rec.Server.IMAPAddr(), status)
			}
			return w.Flush()
		},
	}
}

func newAccountsAddCmd(configPath *string) *cobra.Command {
	var (
		password     string
		accessToken  string
		refreshToken string
		displayName  string
	)

	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Add a mail account after verifying its credentials",
		Long: `Add an account to the store. Server endpoints are derived from the
address domain. The credentials are verified by opening an IMAP session
before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !strings.Contains(address, "@") {
				return fmt.Errorf("%q is not a valid email address", address)
			}
			if password == "" && accessToken == "" {
				return fmt.Errorf("either --password or --access-token is required")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			serverConfig, err := provider.Resolve(address)
			if err != nil {
				return fmt.Errorf("cannot derive server config: %w", err)
			}

			rec := store.Record{
				Address:     address,
				DisplayName: displayName,
				Server:      serverConfig,
				Active:      true,
			}
			credential := password
			if password != "" {
				rec.AuthMode = store.AuthPassword
				rec.Secret = password
			} else {
				rec.AuthMode = store.AuthOAuthBearer
				rec.AccessToken = accessToken
				rec.RefreshToken = refreshToken
				rec.TokenExpiry = time.Now().Add(time.Hour)
				credential = accessToken
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			session, err := mailbox.Open(rec, credential, cfg, logger)
			if err != nil {
				return fmt.Errorf("credential verification failed: %w", err)
			}
			session.Close()
			rec.LastAuthenticatedAt = time.Now()

			st := store.New(cfg.Store.Path)
			if err := st.Upsert(rec); err != nil {
				return fmt.Errorf("failed to persist account: %w", err)
			}
			fmt.Printf("Added account %s (%s auth, IMAP %s, SMTP %s)\n",
				address, rec.AuthMode, serverConfig.IMAPAddr(), serverConfig.SMTPAddr())
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password or app passcode (password auth)")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token (OAuth auth)")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Optional alias usable as a lookup key")

	return cmd
}

func newAccountsRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <address>",
		Short: "Remove a stored account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			if err := st.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}
			fmt.Printf("Removed account %s\n", args[0])
			return nil
		},
	}
}

func newAccountsSetDefaultCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <address>",
		Short: "Mark an account as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			if err := st.SetDefault(args[0]); err != nil {
				return fmt.Errorf("failed to set default account: %w", err)
			}
			fmt.Printf("Default account is now %s\n", args[0])
			return nil
		},
	}
}
