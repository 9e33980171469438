package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/banreview/internal/model"
)

// JSONWriter exports stored runs for other tools.
type JSONWriter struct {
	baseWriter

	// prefix and indent are passed to the encoder. Both empty means compact.
	prefix string
	indent string

	// version is the banreview version recorded in the output.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, each line starting with prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter writing compact JSON to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONRun is the document written for a stored run.
type JSONRun struct {
	Version  string          `json:"version,omitempty"`
	Run      model.Run       `json:"run"`
	Verdicts []model.Verdict `json:"verdicts"`
}

// WriteRun writes the run and its verdicts as one JSON document followed by
// a newline. Verdicts are never null in the output.
func (w *JSONWriter) WriteRun(run model.Run, verdicts []model.Verdict) (int, error) {
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}

	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetIndent(w.prefix, w.indent)
	enc.SetEscapeHTML(false)
	err := enc.Encode(JSONRun{
		Version:  w.version,
		Run:      run,
		Verdicts: verdicts,
	})
	return cw.n, err
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
