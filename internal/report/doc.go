// Package report writes the outputs of a review run.
//
// CSVWriter produces the verdict spreadsheets (the full report and the
// unban-only report). It implements the pipeline sink contract: the first
// write of a run truncates the file and writes the header, later writes
// append rows.
//
// MarkdownWriter renders the run summary as Markdown, and together with
// JSONWriter implements Writer for runs read back from the history store.
package report
