package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/language"
	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/surface"
	"github.com/nao1215/banreview/internal/throttle"
)

// DefaultPageOpenDelay is the pause after opening a tab, taken while the
// surface lock is still held.
const DefaultPageOpenDelay = 100 * time.Millisecond

// Evaluator evaluates bans, each in its own browser tab.
// It is safe for concurrent use.
type Evaluator struct {
	browser       browser.Browser
	lock          *surface.Lock
	throttle      *throttle.Throttle
	pipeline      *Pipeline
	baseURL       string
	pageOpenDelay time.Duration
	logger        *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithPageOpenDelay sets the pause after opening a tab.
func WithPageOpenDelay(d time.Duration) Option {
	return func(e *Evaluator) {
		e.pageOpenDelay = d
	}
}

// Config holds the collaborators of an Evaluator.
type Config struct {
	// Browser opens a tab per evaluation.
	Browser browser.Browser
	// Lock serializes work on the visible tab.
	Lock *surface.Lock
	// Throttle spaces out browser actions.
	Throttle *throttle.Throttle
	// Source gathers evidence.
	Source EvidenceSource
	// Detector classifies evidence text.
	Detector language.Detector
	// PolicyPhrase marks a language-rule ban.
	PolicyPhrase string
	// TargetLanguage is the ISO 639-3 code of the community language.
	TargetLanguage string
	// LanguageName is the target language as named in notes. It defaults
	// to the English name of TargetLanguage.
	LanguageName string
	// BaseURL is the site, used for profile URLs.
	BaseURL string
}

// New creates an Evaluator running screen, gather, classify and decide.
func New(cfg Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		browser:       cfg.Browser,
		lock:          cfg.Lock,
		throttle:      cfg.Throttle,
		baseURL:       cfg.BaseURL,
		pageOpenDelay: DefaultPageOpenDelay,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	languageName := cfg.LanguageName
	if languageName == "" {
		languageName = language.DisplayName(cfg.TargetLanguage)
	}

	e.pipeline = NewPipeline(WithPipelineLogger(e.logger))
	e.pipeline.AddSteps(
		NewScreenStep(cfg.PolicyPhrase),
		NewGatherStep(cfg.Source),
		NewClassifyStep(cfg.Detector, cfg.TargetLanguage),
		NewDecideStep(languageName),
	)
	e.logger.Debug("evaluator ready", "steps", e.pipeline.StepNames(), "target", cfg.TargetLanguage)
	return e
}

// Evaluate produces the verdict for ban. A screened-out ban still opens
// and closes a tab. Errors are returned to the caller, which substitutes
// a placeholder verdict.
func (e *Evaluator) Evaluate(ctx context.Context, ban model.BanRecord) (model.Verdict, error) {
	page, err := e.openPage(ctx)
	if err != nil {
		return model.Verdict{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			e.logger.Debug("failed to close tab", "user", ban.Username, "error", err)
		}
	}()

	ev := NewEvaluation(ban, ban.ProfileURL(e.baseURL), page)
	if err := e.pipeline.Execute(ctx, ev); err != nil {
		return model.Verdict{}, err
	}
	if !ev.State.Terminal() {
		return model.Verdict{}, fmt.Errorf("%w: evaluation stopped in %s", ErrUnexpectedState, ev.State)
	}
	if ev.State == StateDecided {
		e.logger.Debug("evidence evaluated",
			"user", ban.Username,
			"activity", len(ev.Activity),
			"modlog", len(ev.ModLog),
			"ratio", ev.Ratio,
		)
	}
	return ev.Verdict, nil
}

// openPage opens a tab under the surface lock: a new tab takes the front.
func (e *Evaluator) openPage(ctx context.Context) (browser.Page, error) {
	var page browser.Page
	err := e.lock.Do(ctx, func(ctx context.Context) error {
		p, err := e.browser.NewPage(ctx)
		if err != nil {
			return err
		}
		page = p
		return e.throttle.Wait(ctx, e.pageOpenDelay)
	})
	if err != nil {
		if page != nil {
			_ = page.Close() //nolint:errcheck // already failing
		}
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return page, nil
}
