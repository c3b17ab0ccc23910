// Package cli provides the command-line interface for heirloom.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/heirloom-app/heirloom-go/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// API client shared by all commands
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "heirloom",
	Short: "Media memory store for family archives",
	Long: `Heirloom turns a person's media archive (letters, photos, recordings,
home videos) into searchable memories you can ask questions about.

Upload media, wait for extraction, then ask questions grounded in what
was actually uploaded.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default HEIRLOOM_SERVER_URL or http://localhost:8487)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
