package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fieldline",
	Short: "Conversational gateway for field report sheets",
	Long:  "Fieldline receives chat-provider webhooks, matches senders against the employee directory, and replies with their report sheet links.",
}

// Execute runs the root command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
