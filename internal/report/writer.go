package report

import (
	"io"

	"github.com/nao1215/banreview/internal/model"
)

// Writer renders a stored review run.
// MarkdownWriter and JSONWriter implement it so the history command can
// switch formats with a flag.
type Writer interface {
	// WriteRun outputs the run and its verdicts.
	// Returns the number of bytes written and any error encountered.
	WriteRun(run model.Run, verdicts []model.Verdict) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// recommended returns the verdicts that recommend an unban, in order.
func recommended(verdicts []model.Verdict) []model.Verdict {
	out := make([]model.Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		if v.UnbanRecommended {
			out = append(out, v)
		}
	}
	return out
}
