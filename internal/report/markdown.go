package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/banreview/internal/model"
)

// SummaryFile is the Markdown summary written next to the CSV reports.
const SummaryFile = "summary.md"

// maxCellLen bounds free-text table cells such as ban reasons.
const maxCellLen = 60

// MarkdownWriter outputs run summaries in Markdown format.
type MarkdownWriter struct {
	baseWriter

	// title is the H1 heading of the document.
	title string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle sets the document heading.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if title != "" {
			w.title = title
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      "Language Ban Review",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary writes the totals of a finished review and the users
// recommended for unban. Only verdicts recommending an unban are listed.
func (w *MarkdownWriter) WriteSummary(summary model.RunSummary, verdicts []model.Verdict) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(w.title)
	md.PlainText("")

	w.writeTotals(md, summary)
	w.writeRecommended(md, summary, verdicts)

	return len(md.String()), md.Build()
}

// WriteRun writes a stored run: its metadata followed by the summary.
func (w *MarkdownWriter) WriteRun(run model.Run, verdicts []model.Verdict) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(w.title)
	md.PlainText("")

	finished := "-"
	if run.Finished() {
		finished = run.FinishedAt.Format(time.DateTime)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Community", "r/" + run.Community},
			{"Started", run.StartedAt.Format(time.DateTime)},
			{"Finished", finished},
		},
	})
	md.PlainText("")

	if !run.Finished() {
		md.Warning("This run did not finish. Totals cover the pages written before it stopped.")
		md.PlainText("")
	}

	w.writeTotals(md, run.Summary)
	w.writeRecommended(md, run.Summary, verdicts)

	return len(md.String()), md.Build()
}

// writeTotals writes the totals table, a pie chart and an alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary model.RunSummary) {
	md.H2("Totals")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(summary.Pages)},
			{"Unban recommended", strconv.Itoa(summary.Recommended)},
			{"Keep ban", strconv.Itoa(kept(summary))},
			{"Unrelated to language rule", strconv.Itoa(summary.ScreenedOut)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"**Total**", "**" + strconv.Itoa(summary.Evaluated) + "**"},
		},
	})
	md.PlainText("")

	if summary.Evaluated > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of verdict outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdicts"),
		piechart.WithShowData(true),
	)

	if summary.Recommended > 0 {
		chart.LabelAndIntValue("Unban", uint64(summary.Recommended))
	}
	if n := kept(summary); n > 0 {
		chart.LabelAndIntValue("Keep", uint64(n))
	}
	if summary.ScreenedOut > 0 {
		chart.LabelAndIntValue("Unrelated", uint64(summary.ScreenedOut))
	}
	if summary.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing what needs a moderator's attention.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.RunSummary) {
	switch {
	case summary.Failed > 0:
		md.Cautionf(
			"%d ban(s) could not be evaluated. Check log.txt and review them by hand.",
			summary.Failed,
		)
	case summary.Recommended > 0:
		md.Importantf(
			"%d user(s) are recommended for unban. Review unban_only.csv before acting.",
			summary.Recommended,
		)
	case summary.Evaluated > 0:
		md.Note("No user is recommended for unban.")
	default:
		md.Tip("The ban list was empty.")
	}
	md.PlainText("")
}

// writeRecommended lists the users recommended for unban. Verdict details
// are shown for the users found in verdicts; the others are listed by name.
func (w *MarkdownWriter) writeRecommended(md *markdown.Markdown, summary model.RunSummary, verdicts []model.Verdict) {
	md.H2("Recommended for Unban")
	md.PlainText("")

	rec := recommended(verdicts)
	switch {
	case len(rec) > 0:
		rows := make([][]string, len(rec))
		for i, v := range rec {
			rows[i] = []string{
				"[u/" + v.Username + "](" + v.ProfileURL + ")",
				truncateString(v.Reason, maxCellLen),
				v.Note,
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"User", "Ban Reason", "Note"},
			Rows:   rows,
		})
	case len(summary.RecommendedUsers) > 0:
		md.BulletList(summary.RecommendedUsers...)
	default:
		md.PlainText("None.")
	}
	md.PlainText("")
}

// kept is the number of language bans that stay in place.
func kept(summary model.RunSummary) int {
	n := summary.Evaluated - summary.Recommended - summary.ScreenedOut - summary.Failed
	if n < 0 {
		return 0
	}
	return n
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
