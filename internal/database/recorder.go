package database

import (
	"context"

	"github.com/nao1215/banreview/internal/model"
)

// Recorder writes the verdicts of one run as the ban list is paged.
// It satisfies the pipeline sink contract.
type Recorder struct {
	db    *ReviewDB
	runID string
}

// Recorder returns a Recorder for the run with ID runID.
func (rdb *ReviewDB) Recorder(runID string) *Recorder {
	return &Recorder{db: rdb, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

// Write stores the verdicts of page. The first write of a run replaces any
// verdicts stored for it, mirroring the truncation of the CSV reports.
func (r *Recorder) Write(ctx context.Context, page int, verdicts []model.Verdict, appendMode bool) error {
	// Store pages that finished before cancellation.
	return r.db.SaveVerdicts(context.WithoutCancel(ctx), r.runID, page, verdicts, !appendMode)
}
