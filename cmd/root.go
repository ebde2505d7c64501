package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailbridge application
var rootCmd = &cobra.Command{
	Use:   "mailbridge",
	Short: "MCP server that bridges AI assistants to IMAP/SMTP mailboxes",
	Long: `mailbridge exposes standard mail accounts (IMAP for reading, SMTP for
sending) to AI assistants over the Model Context Protocol.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over streamable HTTP

Accounts are stored locally and authenticate with either a password
(or app passcode) or an OAuth2 bearer token with automatic refresh.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailbridge version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
