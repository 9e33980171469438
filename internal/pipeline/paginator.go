package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/extract"
	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/throttle"
)

// Pagination defaults.
const (
	// DefaultPageLimit caps the number of ban list pages.
	DefaultPageLimit = 999

	// DefaultLoadTimeout bounds the wait for a ban list page to show rows.
	DefaultLoadTimeout = 10 * time.Second

	// DefaultRenderDelay is the settle time after moving to the next page.
	DefaultRenderDelay = 2 * time.Second
)

// pager is the ban list pagination component; nextButton is its next control.
const pager = "user-management-pagination"

var nextButton = browser.Path(pager, "button.paginate-next-btn")

// Sink receives the verdicts of each ban list page.
type Sink interface {
	// Write persists the verdicts of page (1-based). appendMode is false
	// for the first write of a run and true afterwards.
	Write(ctx context.Context, page int, verdicts []model.Verdict, appendMode bool) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, page int, verdicts []model.Verdict, appendMode bool) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, page int, verdicts []model.Verdict, appendMode bool) error {
	return f(ctx, page, verdicts, appendMode)
}

// Paginator walks the ban list and evaluates every user once.
type Paginator struct {
	batch       *BatchProcessor
	evaluate    EvaluateFunc
	sinks       []Sink
	throttle    *throttle.Throttle
	pageLimit   int
	loadTimeout time.Duration
	renderDelay time.Duration
	logger      *slog.Logger
}

// PaginatorOption configures a Paginator.
type PaginatorOption func(*Paginator)

// WithSinks adds sinks. Every sink sees every page, in the order given.
func WithSinks(sinks ...Sink) PaginatorOption {
	return func(p *Paginator) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithPageLimit caps the number of pages. Non-positive values keep the default.
func WithPageLimit(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.pageLimit = n
		}
	}
}

// WithLoadTimeout sets how long a page may take to show its rows.
func WithLoadTimeout(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		p.loadTimeout = d
	}
}

// WithPageRenderDelay sets the settle time after moving to the next page.
func WithPageRenderDelay(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		p.renderDelay = d
	}
}

// WithPageThrottle sets the throttle used for pagination delays.
func WithPageThrottle(t *throttle.Throttle) PaginatorOption {
	return func(p *Paginator) {
		p.throttle = t
	}
}

// WithPaginatorLogger sets the logger.
func WithPaginatorLogger(logger *slog.Logger) PaginatorOption {
	return func(p *Paginator) {
		p.logger = logger
	}
}

// NewPaginator creates a Paginator evaluating bans with evaluate on batch.
func NewPaginator(batch *BatchProcessor, evaluate EvaluateFunc, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		batch:       batch,
		evaluate:    evaluate,
		pageLimit:   DefaultPageLimit,
		loadTimeout: DefaultLoadTimeout,
		renderDelay: DefaultRenderDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.throttle == nil {
		p.throttle = throttle.New()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run opens listURL in page and processes ban list pages until the next
// control is missing or disabled, the next page fails to load, the page
// limit is reached or ctx is done. Each page is written to the sinks
// before the next one is requested.
//
// A sink failure aborts the run and is returned; everything else that
// ends pagination is logged and ends the run normally.
func (p *Paginator) Run(ctx context.Context, page browser.Page, listURL string) (model.RunSummary, error) {
	var summary model.RunSummary

	if err := page.Navigate(ctx, listURL); err != nil {
		return summary, fmt.Errorf("failed to open ban list: %w", err)
	}
	if err := page.WaitVisible(ctx, extract.BanListFirstRow, p.loadTimeout); err != nil {
		p.logger.Warn("ban list shows no rows", "url", listURL, "error", err)
	}

	seen := make(map[string]struct{})
	firstWrite := true

	for index := 1; index <= p.pageLimit; index++ {
		bans, err := p.readPage(ctx, page, seen)
		if err != nil {
			p.logger.Warn("failed to read ban list page", "page", index, "error", err)
			break
		}

		verdicts := p.batch.ProcessBatch(ctx, bans, p.evaluate)
		for _, sink := range p.sinks {
			if err := sink.Write(ctx, index, verdicts, !firstWrite); err != nil {
				return summary, fmt.Errorf("failed to persist page %d: %w", index, err)
			}
		}
		firstWrite = false
		summary.Pages++
		summary.Add(verdicts)
		p.logger.Info("page persisted", "page", index, "users", len(verdicts))

		if ctx.Err() != nil {
			p.logger.Warn("review interrupted", "page", index, "reason", ctx.Err())
			break
		}
		if index == p.pageLimit {
			p.logger.Info("page limit reached", "limit", p.pageLimit)
			break
		}
		if err := p.advance(ctx, page); err != nil {
			p.logger.Info("pagination finished", "page", index, "reason", err)
			break
		}
	}
	return summary, nil
}

// readPage returns the bans of the current page not seen before, marking
// them seen.
func (p *Paginator) readPage(ctx context.Context, page browser.Page, seen map[string]struct{}) ([]model.BanRecord, error) {
	content, err := page.Content(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := extract.ParseString(content)
	if err != nil {
		return nil, err
	}

	var fresh []model.BanRecord
	for _, ban := range extract.BanList(doc) {
		if _, dup := seen[ban.Username]; dup {
			continue
		}
		seen[ban.Username] = struct{}{}
		fresh = append(fresh, ban)
	}
	return fresh, nil
}

// errLastPage ends pagination when the next control is missing or disabled.
var errLastPage = errors.New("next page control missing or disabled")

// advance moves to the next ban list page.
func (p *Paginator) advance(ctx context.Context, page browser.Page) error {
	if err := page.WaitVisible(ctx, pager, p.loadTimeout); err != nil {
		return err
	}
	enabled, err := page.ControlEnabled(ctx, nextButton)
	if err != nil {
		return err
	}
	if !enabled {
		return errLastPage
	}
	if err := page.Click(ctx, nextButton); err != nil {
		return err
	}
	if err := p.throttle.Wait(ctx, p.renderDelay); err != nil {
		return err
	}
	return page.WaitVisible(ctx, extract.BanListFirstRow, p.loadTimeout)
}
