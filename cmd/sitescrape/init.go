package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescrape/internal/config"
)

//go:embed templates/sitescrape.yaml
var configTemplate embed.FS

// templatePath is the location of the job file template in configTemplate.
const templatePath = "templates/sitescrape.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sitescrape job file",
		Long: `Init writes a commented .sitescrape job file to the current directory.

The generated file includes:
- The default fields extracted from every page
- Default crawl settings shared by all sites
- Commented examples for site-specific cookies, headers and URL patterns

Examples:
  # Create .sitescrape in current directory
  sitescrape init

  # Create the job file at a specific path
  sitescrape init -o jobs/shop.yaml

  # Force overwrite existing file
  sitescrape init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the job file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing job file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("job file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read job file template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold session cookies.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created job file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The fields extracted from every page")
	fmt.Fprintln(out, "  - Page budget and delay per site")
	fmt.Fprintln(out, "  - Cookies, headers and URL patterns per site")

	return nil
}
