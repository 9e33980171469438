package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/language"
	"github.com/nao1215/banreview/internal/model"
)

// Decision thresholds.
const (
	// MinEvidence is the record count below which activity is too thin to
	// judge and an unban is recommended.
	MinEvidence = 5

	// UnbanRatio is the target-language percentage at or above which an
	// unban is recommended.
	UnbanRatio = 70
)

// EvidenceSource retrieves raw evidence about a user.
// *extract.Extractor implements it.
type EvidenceSource interface {
	Search(ctx context.Context, page browser.Page, username string) ([]model.EvidenceRecord, error)
	ModLog(ctx context.Context, page browser.Page, username string) ([]model.EvidenceRecord, error)
}

// ScreenStep ends the evaluation of bans whose reason does not cite the
// policy phrase.
type ScreenStep struct {
	folded string
}

// NewScreenStep creates a ScreenStep matching phrase case-insensitively.
func NewScreenStep(phrase string) *ScreenStep {
	return &ScreenStep{folded: fold(phrase)}
}

// Name returns the step name.
func (s *ScreenStep) Name() string { return "screen" }

// Do screens ev.
func (s *ScreenStep) Do(_ context.Context, ev *Evaluation) error {
	if ev.State != StatePending {
		return fmt.Errorf("%w: %s", ErrUnexpectedState, ev.State)
	}
	if !s.Matches(ev.Ban.CleanReason()) {
		ev.Verdict = model.NewScreenedOutVerdict(ev.Ban, ev.ProfileURL)
		ev.State = StateScreenedOut
	}
	return nil
}

// Matches reports whether reason contains the policy phrase. Whitespace
// runs are collapsed on both sides before comparing.
func (s *ScreenStep) Matches(reason string) bool {
	return strings.Contains(fold(reason), s.folded)
}

// fold collapses whitespace and case-folds s. A Caser is not safe for
// concurrent use, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// GatherStep collects search samples and mod-log removals.
type GatherStep struct {
	source EvidenceSource
}

// NewGatherStep creates a GatherStep reading from source.
func NewGatherStep(source EvidenceSource) *GatherStep {
	return &GatherStep{source: source}
}

// Name returns the step name.
func (s *GatherStep) Name() string { return "gather" }

// Do gathers evidence for ev. Both paths share the evaluation's page, so
// they run one after the other.
func (s *GatherStep) Do(ctx context.Context, ev *Evaluation) error {
	if ev.State != StatePending {
		return fmt.Errorf("%w: %s", ErrUnexpectedState, ev.State)
	}
	activity, err := s.source.Search(ctx, ev.Page, ev.Ban.Username)
	if err != nil {
		return fmt.Errorf("search sampling: %w", err)
	}
	modLog, err := s.source.ModLog(ctx, ev.Page, ev.Ban.Username)
	if err != nil {
		return fmt.Errorf("mod-log sampling: %w", err)
	}
	ev.Activity = activity
	ev.ModLog = modLog
	ev.State = StateEvidenceGathered
	return nil
}

// ClassifyStep runs language detection over every gathered record.
type ClassifyStep struct {
	detector language.Detector
	target   string
}

// NewClassifyStep creates a ClassifyStep for the target ISO 639-3 code.
func NewClassifyStep(detector language.Detector, target string) *ClassifyStep {
	return &ClassifyStep{detector: detector, target: target}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string { return "classify" }

// Do classifies ev's evidence, activity first.
func (s *ClassifyStep) Do(_ context.Context, ev *Evaluation) error {
	if ev.State != StateEvidenceGathered {
		return fmt.Errorf("%w: %s", ErrUnexpectedState, ev.State)
	}
	classified := make([]model.ClassifiedEvidence, 0, len(ev.Activity)+len(ev.ModLog))
	for _, group := range [][]model.EvidenceRecord{ev.Activity, ev.ModLog} {
		for _, rec := range group {
			classified = append(classified, s.classify(rec))
		}
	}
	ev.Classified = classified
	ev.State = StateClassified
	return nil
}

func (s *ClassifyStep) classify(rec model.EvidenceRecord) model.ClassifiedEvidence {
	code := s.detector.Detect(rec.Text)
	c := model.ClassifiedEvidence{
		EvidenceRecord:   rec,
		LanguageCode:     code,
		IsTargetLanguage: language.IsTarget(code, s.target),
	}
	if !rec.IsModLogEntry {
		if key, ok := model.ParseThreadKey(rec.URL); ok {
			c.IsComment = key.IsComment
		}
	}
	return c
}

// DecideStep deduplicates the classified evidence and issues the verdict.
type DecideStep struct {
	languageName string
}

// NewDecideStep creates a DecideStep. languageName is used in notes,
// e.g. "Dutch".
func NewDecideStep(languageName string) *DecideStep {
	return &DecideStep{languageName: languageName}
}

// Name returns the step name.
func (s *DecideStep) Name() string { return "decide" }

// Do decides ev.
func (s *DecideStep) Do(_ context.Context, ev *Evaluation) error {
	if ev.State != StateClassified {
		return fmt.Errorf("%w: %s", ErrUnexpectedState, ev.State)
	}

	var activity, modLog []model.ClassifiedEvidence
	for _, c := range ev.Classified {
		if c.IsModLogEntry {
			modLog = append(modLog, c)
		} else {
			activity = append(activity, c)
		}
	}
	evidence := Dedup(activity, modLog)

	target, total := Count(evidence)
	ev.Ratio = Ratio(target, total)
	unban := Recommend(target, total)

	detail, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}

	urls := make([]string, len(evidence))
	for i, c := range evidence {
		urls[i] = c.URL
	}

	ev.Verdict = model.Verdict{
		Username:         ev.Ban.Username,
		Reason:           ev.Ban.CleanReason(),
		Note:             s.note(total, unban, len(ev.ModLog)),
		UnbanRecommended: unban,
		ProfileURL:       ev.ProfileURL,
		EvidenceURLs:     strings.Join(urls, "; "),
		EvidenceDetail:   string(detail),
		Outcome:          model.OutcomeDecided,
	}
	ev.State = StateDecided
	return nil
}

// note explains the decision. modLogCount counts mod-log records as
// gathered, before deduplication.
func (s *DecideStep) note(total int, unban bool, modLogCount int) string {
	var note string
	switch {
	case total < MinEvidence:
		note = model.NoteLowActivity
	case unban:
		note = fmt.Sprintf("%d%%+ %s activity; unban recommended.", UnbanRatio, s.languageName)
	default:
		note = fmt.Sprintf("Mostly non-%s activity; keep ban.", s.languageName)
	}
	if modLogCount > 0 {
		note += fmt.Sprintf(" | ModLog mentions: %d", modLogCount)
	}
	return note
}
