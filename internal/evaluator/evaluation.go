package evaluator

import (
	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/model"
)

// State is the progress of one Evaluation.
type State int

const (
	// StatePending is the initial state.
	StatePending State = iota
	// StateScreenedOut is terminal: the ban is not a language-rule ban.
	StateScreenedOut
	// StateEvidenceGathered means search and mod-log records are present.
	StateEvidenceGathered
	// StateClassified means every record carries a language.
	StateClassified
	// StateDecided is terminal: the verdict is final.
	StateDecided
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateScreenedOut:
		return "screened_out"
	case StateEvidenceGathered:
		return "evidence_gathered"
	case StateClassified:
		return "classified"
	case StateDecided:
		return "decided"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further step applies.
func (s State) Terminal() bool {
	return s == StateScreenedOut || s == StateDecided
}

// Evaluation is the working record of one user passing through the pipeline.
// It is owned by a single goroutine.
type Evaluation struct {
	// Ban is the record under evaluation.
	Ban model.BanRecord

	// ProfileURL is the public profile of the banned user.
	ProfileURL string

	// Page is the tab this evaluation navigates in.
	Page browser.Page

	// State is the current state.
	State State

	// Activity holds search samples; ModLog holds mod-log removals.
	Activity []model.EvidenceRecord
	ModLog   []model.EvidenceRecord

	// Classified holds Activity and ModLog after language detection,
	// activity first.
	Classified []model.ClassifiedEvidence

	// Ratio is the target-language percentage of the deduplicated evidence.
	Ratio float64

	// Verdict is set by the step that reaches a terminal state.
	Verdict model.Verdict
}

// NewEvaluation starts the evaluation of ban.
func NewEvaluation(ban model.BanRecord, profileURL string, page browser.Page) *Evaluation {
	return &Evaluation{
		Ban:        ban,
		ProfileURL: profileURL,
		Page:       page,
		State:      StatePending,
	}
}
