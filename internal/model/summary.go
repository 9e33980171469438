package model

import "time"

// RunSummary totals the verdicts of a review run.
type RunSummary struct {
	// Pages is the number of ban list pages processed.
	Pages int `json:"pages"`

	// Evaluated is the number of verdicts issued.
	Evaluated int `json:"evaluated"`

	// Recommended is the number of unban recommendations.
	Recommended int `json:"recommended"`

	// ScreenedOut is the number of bans not citing the language rule.
	ScreenedOut int `json:"screened_out"`

	// Failed is the number of placeholder verdicts.
	Failed int `json:"failed"`

	// RecommendedUsers lists the users recommended for unban, in report order.
	RecommendedUsers []string `json:"recommended_users"`
}

// Add counts verdicts into the summary.
func (s *RunSummary) Add(verdicts []Verdict) {
	for _, v := range verdicts {
		s.Evaluated++
		switch v.Outcome {
		case OutcomeScreenedOut:
			s.ScreenedOut++
		case OutcomeFailed:
			s.Failed++
		}
		if v.UnbanRecommended {
			s.Recommended++
			s.RecommendedUsers = append(s.RecommendedUsers, v.Username)
		}
	}
}

// Run describes one stored review run.
type Run struct {
	ID         string     `json:"id"`
	Community  string     `json:"community"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
	Summary    RunSummary `json:"summary"`
}

// Finished reports whether the run completed and recorded its summary.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}
