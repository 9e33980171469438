package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/banreview/internal/model"
)

// Report file names inside the output directory.
const (
	// FullReportFile holds every verdict.
	FullReportFile = "language_ban_review.csv"

	// UnbanReportFile holds only the verdicts recommending an unban.
	UnbanReportFile = "unban_only.csv"
)

// CSVHeader is the header row of both verdict reports.
var CSVHeader = []string{
	"Username",
	"Ban Reason",
	"Note",
	"Unban",
	"User URL",
	"Checked Content URLs",
	"Content Checks (JSON)",
}

// CSVWriter writes verdicts to a CSV file, one row per verdict.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	filter func(model.Verdict) bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithFilter keeps only the verdicts for which keep returns true.
func WithFilter(keep func(model.Verdict) bool) CSVWriterOption {
	return func(w *CSVWriter) {
		w.filter = keep
	}
}

// UnbanOnly is the filter of the unban-only report.
func UnbanOnly(v model.Verdict) bool {
	return v.UnbanRecommended
}

// NewCSVWriter creates a CSVWriter for the file at path.
// The file is not touched until the first Write.
func NewCSVWriter(path string, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{path: path}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the file the writer writes to.
func (w *CSVWriter) Path() string {
	return w.path
}

// Write writes the verdicts of one ban list page. When appendMode is false
// the file is truncated and the header written first; otherwise rows are
// appended. A page with no matching verdicts still creates the file.
// It ignores ctx so a page evaluated before cancellation still reaches disk.
func (w *CSVWriter) Write(_ context.Context, _ int, verdicts []model.Verdict, appendMode bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(w.path, flags, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open report %s: %w", w.path, err)
	}

	cw := csv.NewWriter(f)
	if !appendMode {
		if err := cw.Write(CSVHeader); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write report header: %w", err)
		}
	}
	for _, v := range verdicts {
		if w.filter != nil && !w.filter(v) {
			continue
		}
		if err := cw.Write(row(v)); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write report row for %s: %w", v.Username, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return f.Close()
}

// row renders a verdict in CSVHeader order.
func row(v model.Verdict) []string {
	return []string{
		v.Username,
		v.Reason,
		v.Note,
		v.UnbanFlag(),
		v.ProfileURL,
		v.EvidenceURLs,
		v.EvidenceDetail,
	}
}
