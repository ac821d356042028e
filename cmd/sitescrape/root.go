package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitescrape.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescrape",
		Short: "Polite breadth-first web scraper",
		Long: `sitescrape crawls a website breadth-first from a start URL and extracts
structured fields from every visited page using CSS selectors.

Crawling stays on the start URL's host by default, waits between requests,
and stops after a page budget. Results are written as CSV, JSON Lines or
Markdown and every run is kept in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
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
