package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/banreview/internal/database"
	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// shortIDLen is the run ID prefix shown in listings; it is accepted by --run.
const shortIDLen = 8

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past review runs",
		Long: `History lists the review runs recorded in the history database, newest first.

With --run it prints the users recommended for unban in that run, one per
line. --markdown and --json render the whole run instead.

Examples:
  # List the last 20 runs
  banreview history

  # Users recommended for unban in a run (an ID prefix is enough)
  banreview history --run 1a2b3c4d

  # Render a run as Markdown
  banreview history --run 1a2b3c4d --markdown > run.md

  # Export a run with every verdict as JSON
  banreview history --run 1a2b3c4d --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("run", "r", "",
		"Show a single run by ID or ID prefix")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the run in JSON format (requires --run)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the run in Markdown format (requires --run)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().String("config", "",
		"Configuration file path (default: .banreview in current or home directory)")

	return cmd
}

// historyFormat selects how a single run is printed.
type historyFormat int

const (
	formatUsers historyFormat = iota
	formatMarkdown
	formatJSON
)

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = cfg.DBDir
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	format := formatUsers
	switch {
	case jsonOutput:
		format = formatJSON
	case markdownOutput:
		format = formatMarkdown
	}

	// Validate flags before opening the database
	if runID == "" && format != formatUsers {
		return errors.New("--json and --markdown require --run")
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No review runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'banreview review' to review the ban list.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if runID == "" {
		return listRuns(ctx, out, db, limit)
	}
	return showRun(ctx, out, db, runID, format)
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.ReviewDB, limit int) error {
	runs, err := db.History(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No review runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'banreview review' to review the ban list.")
		return nil
	}

	fmt.Fprintf(out, "Review runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-20s  %-19s  %5s  %5s  %6s  %s\n",
		"ID", "Community", "Started", "Pages", "Users", "Unban", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 84))

	for _, run := range runs {
		status := "finished"
		if !run.Finished() {
			status = "incomplete"
		}
		fmt.Fprintf(out, "  %-8s  %-20s  %-19s  %5d  %5d  %6d  %s\n",
			run.ID[:min(shortIDLen, len(run.ID))],
			"r/"+run.Community,
			run.StartedAt.Local().Format(time.DateTime),
			run.Summary.Pages,
			run.Summary.Evaluated,
			run.Summary.Recommended,
			status,
		)
	}
	fmt.Fprintln(out, "\nUse 'banreview history --run <id>' to see the users recommended in a run.")

	return nil
}

// showRun prints one run in the requested format.
func showRun(ctx context.Context, out io.Writer, db *database.ReviewDB, id string, format historyFormat) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	verdicts, err := db.RunVerdicts(ctx, run.ID)
	if err != nil {
		return err
	}

	// An incomplete run never stored its totals; count what was written.
	if !run.Finished() {
		var summary model.RunSummary
		summary.Pages = run.Summary.Pages
		summary.Add(verdicts)
		run.Summary = summary
	}

	var w report.Writer
	switch format {
	case formatMarkdown:
		w = report.NewMarkdownWriter(out, report.WithTitle("Language Ban Review: r/"+run.Community))
	case formatJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	default:
		for _, user := range run.Summary.RecommendedUsers {
			fmt.Fprintln(out, user)
		}
		return nil
	}

	_, err = w.WriteRun(run, verdicts)
	return err
}
