package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for banreview.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banreview",
		Short: "Review language-rule bans of a community",
		Long: `banreview reviews the ban list of a community whose rules require posting in
one language. For every user banned under that rule it samples the user's
posts, comments and removed content, detects their language and recommends an
unban when the user showed little activity or mostly wrote in the community
language.

A real browser is used so that the moderator session applies. The first run
asks you to log in manually; the session is saved and reused afterwards.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewReviewCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
