package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/config"
	"github.com/nao1215/banreview/internal/database"
	"github.com/nao1215/banreview/internal/evaluator"
	"github.com/nao1215/banreview/internal/extract"
	"github.com/nao1215/banreview/internal/language"
	"github.com/nao1215/banreview/internal/log"
	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/pipeline"
	"github.com/nao1215/banreview/internal/report"
	"github.com/nao1215/banreview/internal/surface"
	"github.com/nao1215/banreview/internal/throttle"
)

// runLogFile is the copy of the console log kept in the output directory.
const runLogFile = "log.txt"

// staleOutputs are removed from the output directory before a run starts.
var staleOutputs = []string{report.FullReportFile, report.UnbanReportFile, runLogFile}

// reviewEnv holds the process-level collaborators of a review run.
type reviewEnv struct {
	// in is read for the login confirmation.
	in io.Reader

	// out receives operator instructions and the final summary.
	out io.Writer

	// errOut receives the log.
	errOut io.Writer

	// newBrowser starts the browser.
	newBrowser func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Browser, error)

	// newDetector builds the language detector.
	newDetector func(cfg *config.Config) (language.Detector, error)
}

// defaultReviewEnv wires the review to the terminal, Chrome and lingua.
func defaultReviewEnv(cmd *cobra.Command) reviewEnv {
	return reviewEnv{
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
		newBrowser:  startChrome,
		newDetector: newLinguaDetector,
	}
}

// startChrome launches Chrome as configured.
func startChrome(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Browser, error) {
	chrome, err := browser.NewChrome(ctx,
		browser.WithHeadless(cfg.Headless),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithExecPath(cfg.ChromePath),
		browser.WithChromeLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return chrome, nil
}

// newLinguaDetector builds the detector over the configured candidate languages.
// The target language must be one the detector can answer with.
func newLinguaDetector(cfg *config.Config) (language.Detector, error) {
	if !language.Supported(cfg.TargetLanguage) {
		return nil, fmt.Errorf("%w: %s", language.ErrUnsupportedLanguage, cfg.TargetLanguage)
	}
	detector, err := language.NewLinguaDetector(cfg.CandidateLanguages, cfg.MinRelativeDistance)
	if err != nil {
		return nil, err
	}
	return detector, nil
}

// NewReviewCmd creates the review command.
func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the ban list and recommend unbans",
		Long: `Review walks the ban list of the community page by page. Every ban whose
reason cites the language rule is checked against the user's recent posts,
comments and removed content:

- fewer than 5 distinct pieces of content: unban recommended (low activity)
- at least 70% written in the community language: unban recommended
- otherwise the ban stays

Results are written after every ban list page to the output directory:
  language_ban_review.csv  every reviewed user
  unban_only.csv           users recommended for unban
  summary.md               totals and the recommended users
  log.txt                  the run log

Press Ctrl+C to stop. Pages already written stay on disk.

Examples:
  # Review r/nederlands with the defaults
  banreview review

  # Review another community with fewer parallel tabs
  banreview review --community belgium --phrase "English only" --language eng -c 5

  # Only look at the first two ban list pages
  banreview review --page-limit 2`,
		Args: cobra.NoArgs,
		RunE: runReviewCmd,
	}

	// Review target flags
	cmd.Flags().String("community", config.DefaultCommunity,
		"Community to review, without the r/ prefix")
	cmd.Flags().String("phrase", config.DefaultPolicyPhrase,
		"Ban reason phrase that marks a language-rule ban")
	cmd.Flags().StringP("language", "l", config.DefaultTargetLanguage,
		"ISO 639-3 code of the community language")

	// Pacing flags
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of users evaluated at once")
	cmd.Flags().IntP("page-limit", "p", config.DefaultPageLimit,
		"Maximum number of ban list pages")
	cmd.Flags().Float64("rps", 0,
		"Global cap on browser actions per second (0 disables the cap)")

	// Location flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory for reports and the run log")
	cmd.Flags().StringP("session", "s", config.DefaultSessionFile,
		"Saved login session file")
	cmd.Flags().String("snapshot-dir", "",
		"Keep the HTML of every page read in this directory")
	cmd.Flags().String("config", "",
		"Configuration file path (default: .banreview in current or home directory)")

	// Behavior flags
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().Bool("headless", false,
		"Run the browser without a window (needs a saved session)")

	return cmd
}

// runReviewCmd executes the review command.
func runReviewCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildReviewConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// SIGINT and SIGTERM stop admission and pagination.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runReview(ctx, cfg, defaultReviewEnv(cmd))
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig creates a Config from the defaults and the configuration file.
// A file named with --config must exist; otherwise a missing file is fine.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// buildReviewConfig creates a Config from the configuration file and the
// flags. Flags set on the command line win over the file.
func buildReviewConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"community", &cfg.Community},
		{"phrase", &cfg.PolicyPhrase},
		{"language", &cfg.TargetLanguage},
		{"output", &cfg.OutputDir},
		{"session", &cfg.SessionFile},
		{"snapshot-dir", &cfg.SnapshotDir},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		if *f.dst, err = flags.GetString(f.name); err != nil {
			return nil, err
		}
	}

	intFlags := []struct {
		name string
		dst  *int
	}{
		{"concurrency", &cfg.Concurrency},
		{"page-limit", &cfg.PageLimit},
	}
	for _, f := range intFlags {
		if !flags.Changed(f.name) {
			continue
		}
		if *f.dst, err = flags.GetInt(f.name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("rps") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	return cfg, nil
}

// runReview executes one review run.
func runReview(ctx context.Context, cfg *config.Config, env reviewEnv) error {
	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := removeStaleOutputs(cfg.OutputDir); err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.OutputDir, runLogFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // output directory is operator-chosen
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer logFile.Close()

	logger := log.NewRunLogger(env.errOut, logFile, cfg.Verbose)
	logger.Info("starting review",
		"community", cfg.Community,
		"concurrency", cfg.Concurrency,
		"pageLimit", cfg.PageLimit,
		"output", cfg.OutputDir,
		"saveToDB", cfg.SaveToDB,
	)

	detector, err := env.newDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create language detector: %w", err)
	}

	var db *database.ReviewDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	// The browser outlives cancellation so open tabs are closed in order.
	b, err := env.newBrowser(context.WithoutCancel(ctx), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	session := browser.NewSession(b, cfg.SessionFile, cfg.BaseURL,
		browser.WithPrompt(env.in, env.out),
		browser.WithSessionLogger(logger),
	)
	if err := session.Establish(ctx); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}

	th := throttle.New(
		throttle.WithJitter(cfg.JitterMin, cfg.JitterMax),
		throttle.WithRequestsPerSecond(cfg.RequestsPerSecond),
	)
	lock := &surface.Lock{}

	ex, err := extract.New(cfg.BaseURL, cfg.Community, lock, th,
		extract.WithRenderDelay(cfg.RenderDelay),
		extract.WithSnapshotDir(cfg.SnapshotDir),
		extract.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ev := evaluator.New(evaluator.Config{
		Browser:        b,
		Lock:           lock,
		Throttle:       th,
		Source:         ex,
		Detector:       detector,
		PolicyPhrase:   cfg.PolicyPhrase,
		TargetLanguage: cfg.TargetLanguage,
		BaseURL:        cfg.BaseURL,
	}, evaluator.WithLogger(logger))

	var recommended []model.Verdict
	sinks := []pipeline.Sink{
		report.NewCSVWriter(filepath.Join(cfg.OutputDir, report.FullReportFile)),
		report.NewCSVWriter(filepath.Join(cfg.OutputDir, report.UnbanReportFile), report.WithFilter(report.UnbanOnly)),
		pipeline.SinkFunc(func(_ context.Context, _ int, verdicts []model.Verdict, _ bool) error {
			for _, v := range verdicts {
				if v.UnbanRecommended {
					recommended = append(recommended, v)
				}
			}
			return nil
		}),
	}

	var run model.Run
	if db != nil {
		run, err = db.StartRun(ctx, cfg.Community)
		if err != nil {
			return err
		}
		sinks = append(sinks, db.Recorder(run.ID))
		logger.Info("run recorded", "run", run.ID)
	}

	batch := pipeline.NewBatchProcessor(
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithThrottle(th),
		pipeline.WithBatchLogger(logger),
	)
	paginator := pipeline.NewPaginator(batch, ev.Evaluate,
		pipeline.WithSinks(sinks...),
		pipeline.WithPageLimit(cfg.PageLimit),
		pipeline.WithLoadTimeout(cfg.PageLoadTimeout),
		pipeline.WithPageRenderDelay(cfg.RenderDelay),
		pipeline.WithPageThrottle(th),
		pipeline.WithPaginatorLogger(logger),
	)

	listPage, err := b.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open ban list tab: %w", err)
	}
	defer listPage.Close() //nolint:errcheck // browser shutdown closes it anyway

	summary, runErr := paginator.Run(ctx, listPage, cfg.BanListURL())

	// Totals of an interrupted run are still recorded.
	if db != nil {
		if err := db.FinishRun(context.WithoutCancel(ctx), run.ID, summary); err != nil {
			logger.Error("failed to record run totals", "run", run.ID, "error", err)
		}
	}

	summaryPath := filepath.Join(cfg.OutputDir, report.SummaryFile)
	if err := writeSummary(summaryPath, cfg.Community, summary, recommended); err != nil {
		logger.Error("failed to write summary", "path", summaryPath, "error", err)
	}

	printSummary(env.out, cfg, summary, run)
	logger.Info("review finished",
		"pages", summary.Pages,
		"evaluated", summary.Evaluated,
		"recommended", summary.Recommended,
		"failed", summary.Failed,
	)

	if runErr != nil {
		return runErr
	}
	if ctx.Err() != nil {
		return fmt.Errorf("review interrupted: %w", context.Cause(ctx))
	}
	return nil
}

// removeStaleOutputs deletes the reports and log of a previous run.
func removeStaleOutputs(dir string) error {
	for _, name := range staleOutputs {
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove previous %s: %w", name, err)
		}
	}
	return nil
}

// writeSummary writes the Markdown summary of a run to path.
func writeSummary(path, community string, summary model.RunSummary, recommended []model.Verdict) error {
	f, err := os.Create(path) //nolint:gosec // output directory is operator-chosen
	if err != nil {
		return err
	}
	w := report.NewMarkdownWriter(f, report.WithTitle("Language Ban Review: r/"+community))
	if _, err := w.WriteSummary(summary, recommended); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// printSummary prints the outcome of a run for the operator.
func printSummary(out io.Writer, cfg *config.Config, summary model.RunSummary, run model.Run) {
	fmt.Fprintf(out, "\nReviewed %d user(s) on %d page(s) of r/%s\n", summary.Evaluated, summary.Pages, cfg.Community)
	fmt.Fprintf(out, "  unban recommended:   %d\n", summary.Recommended)
	fmt.Fprintf(out, "  unrelated bans:      %d\n", summary.ScreenedOut)
	fmt.Fprintf(out, "  failed evaluations:  %d\n", summary.Failed)
	fmt.Fprintf(out, "\nReports written to %s:\n", cfg.OutputDir)
	for _, name := range []string{report.FullReportFile, report.UnbanReportFile, report.SummaryFile, runLogFile} {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	if run.ID != "" {
		fmt.Fprintf(out, "\nRun ID: %s (see 'banreview history --run %s')\n", run.ID, run.ID[:min(8, len(run.ID))])
	}
}
