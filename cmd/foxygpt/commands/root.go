// Package commands implements the FoxyGPT CLI using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foxygpt",
		Short: "FoxyGPT - a Discord chat companion",
		Long: `FoxyGPT is a Discord chatbot that hangs out in a single channel,
decides for itself which messages deserve a reply, and describes posted
images so they become part of the conversation.

Examples:
  foxygpt setup
  foxygpt serve
  foxygpt serve --config ./config.yaml`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSetupCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
