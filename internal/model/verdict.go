package model

// Outcome records which terminal state produced a Verdict.
type Outcome string

const (
	// OutcomeScreenedOut means the ban reason does not cite the language rule.
	OutcomeScreenedOut Outcome = "screened_out"

	// OutcomeDecided means evidence was gathered, classified and decided on.
	OutcomeDecided Outcome = "decided"

	// OutcomeFailed means evaluation failed and a placeholder was substituted.
	OutcomeFailed Outcome = "failed"
)

// Fixed verdict notes.
const (
	NoteScreenedOut = "Ban unrelated to language rule."
	NoteFailed      = "Error during evaluation"
	NoteLowActivity = "Low activity; unban recommended."
)

// Verdict is the final outcome of evaluating one BanRecord.
// It is written once to every output sink and never modified afterwards.
type Verdict struct {
	Username         string  `json:"username"`
	Reason           string  `json:"reason"`
	Note             string  `json:"note"`
	UnbanRecommended bool    `json:"unban"`
	ProfileURL       string  `json:"user_url"`
	EvidenceURLs     string  `json:"content_urls"`
	EvidenceDetail   string  `json:"content_checks"`
	Outcome          Outcome `json:"outcome"`
}

// UnbanFlag renders UnbanRecommended as the 0/1 value used in reports.
func (v Verdict) UnbanFlag() string {
	if v.UnbanRecommended {
		return "1"
	}
	return "0"
}

// NewScreenedOutVerdict builds the verdict for a ban whose reason does not
// mention the language rule. No evidence fields are populated.
func NewScreenedOutVerdict(ban BanRecord, profileURL string) Verdict {
	return Verdict{
		Username:   ban.Username,
		Reason:     ban.CleanReason(),
		Note:       NoteScreenedOut,
		ProfileURL: profileURL,
		Outcome:    OutcomeScreenedOut,
	}
}

// NewFailedVerdict builds the placeholder substituted when evaluating ban
// failed. It never recommends an unban.
func NewFailedVerdict(ban BanRecord) Verdict {
	return Verdict{
		Username: ban.Username,
		Reason:   ban.RawReason,
		Note:     NoteFailed,
		Outcome:  OutcomeFailed,
	}
}
