package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescrape/internal/config"
	"github.com/nao1215/sitescrape/internal/database"
	"github.com/nao1215/sitescrape/internal/sink"
)

// historyTimeLayout is used for timestamps in history listings.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past crawl runs",
		Long: `History works with the runs stored by previous crawls.

Every crawl stores one run per start URL, including the visited and pending
URLs and every extracted record, unless --no-history was given.

Examples:
  # List the 20 most recent runs
  sitescrape history list

  # Show the details of run 3
  sitescrape history show 3

  # Write the records of run 3 to a JSON Lines file
  sitescrape history export 3 -o run3.jsonl

  # Delete run 3
  sitescrape history delete 3`,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				runs, err := db.ListRuns(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				printRunList(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the details of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				run, err := db.GetRun(ctx, id)
				if err != nil {
					return err
				}
				printRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the records of a run to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			f := sink.DetectFormat(output)
			if format != "" {
				if f, err = sink.ParseFormat(format); err != nil {
					return err
				}
			}

			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				run, err := db.GetRun(ctx, id)
				if err != nil {
					return err
				}
				s := sink.NewFileSink(output,
					sink.WithFormat(f),
					sink.WithFileSummary(runSummary(run)),
					sink.WithStdout(cmd.OutOrStdout()),
				)
				if err := s.Write(run.Records); err != nil {
					if errors.Is(err, sink.ErrNoRecords) {
						fmt.Fprintf(cmd.ErrOrStderr(), "Run %d has no records\n", id)
						return nil
					}
					return err
				}
				if output != sink.StdoutPath {
					fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d record(s) to %s\n", len(run.Records), output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", config.DefaultOutput, "Output file path, or - for stdout")
	cmd.Flags().StringP("format", "f", "", "Output format: csv, jsonl or markdown (default: from the output extension)")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				if err := db.DeleteRun(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
				return nil
			})
		},
	}
}

// withHistoryDB opens the history database selected by --db-dir and calls fn.
// The database is never created here; a missing database means no runs.
func withHistoryDB(cmd *cobra.Command, fn func(context.Context, *database.HistoryDB) error) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(cmd.Context(), db)
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run ID: %q", s)
	}
	return id, nil
}

// printRunList prints runs as a table.
func printRunList(w io.Writer, runs []database.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in the history.")
		fmt.Fprintln(w, "\nUse 'sitescrape crawl <url>' to crawl a site.")
		return
	}

	fmt.Fprintf(w, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-7s  %-6s  %s\n", "ID", "Date", "Visited", "Failed", "Start URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))

	for _, r := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-7d  %-6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(historyTimeLayout),
			r.Visited,
			r.Failed,
			r.StartURL,
		)
	}

	fmt.Fprintln(w, "\nUse 'sitescrape history show <id>' to see the details of a run.")
}

// printRun prints the details of one run.
func printRun(w io.Writer, run *database.Run) {
	fmt.Fprintf(w, "Run %d\n\n", run.ID)
	fmt.Fprintf(w, "  Start URL:  %s\n", run.StartURL)
	fmt.Fprintf(w, "  Started:    %s\n", run.StartedAt.Local().Format(historyTimeLayout))
	fmt.Fprintf(w, "  Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt))
	fmt.Fprintf(w, "  Page limit: %d\n", run.MaxPages)
	fmt.Fprintf(w, "  Fetched:    %d\n", run.Fetched)
	fmt.Fprintf(w, "  Failed:     %d\n", run.Failed)
	if run.ExtractionErrors > 0 {
		fmt.Fprintf(w, "  Field errors: %d\n", run.ExtractionErrors)
	}
	fmt.Fprintf(w, "  Records:    %d\n", len(run.Records))
	if run.OutputPath != "" {
		fmt.Fprintf(w, "  Output:     %s\n", run.OutputPath)
	}

	fmt.Fprintln(w, "\nFields:")
	for _, sel := range run.Selectors {
		fmt.Fprintf(w, "  %-12s %s\n", sel.Name, sel.Expr)
	}

	fmt.Fprintf(w, "\nVisited (%d):\n", len(run.Visited))
	for _, u := range run.Visited {
		fmt.Fprintf(w, "  %s\n", u)
	}

	if len(run.Pending) > 0 {
		fmt.Fprintf(w, "\nDiscovered but not crawled (%d):\n", len(run.Pending))
		for _, u := range run.Pending {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
}

// runSummary converts a stored run into the header of a Markdown export.
func runSummary(run *database.Run) sink.Summary {
	return sink.Summary{
		StartURL:  run.StartURL,
		Visited:   len(run.Visited),
		Failed:    run.Failed,
		Pending:   len(run.Pending),
		StartedAt: run.StartedAt,
		Duration:  run.FinishedAt.Sub(run.StartedAt),
	}
}
