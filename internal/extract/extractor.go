package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/surface"
	"github.com/nao1215/banreview/internal/throttle"
)

// Kind is a search content kind.
type Kind string

const (
	// KindPosts samples submissions; the text is the submission title.
	KindPosts Kind = "posts"

	// KindComments samples replies; the text is the reply snippet.
	KindComments Kind = "comments"

	// kindModLog names mod-log snapshots.
	kindModLog Kind = "modlog"
)

// Default timings.
const (
	// DefaultRenderDelay is the settle time after a results page loads.
	DefaultRenderDelay = 2 * time.Second

	// DefaultFrontDelay is the pause after bringing a tab to the front.
	DefaultFrontDelay = 100 * time.Millisecond

	// DefaultWaitTimeout bounds the wait for the mod-log view.
	DefaultWaitTimeout = 30 * time.Second
)

// Mod-log actions that count as evidence.
const (
	actionRemoveLink    = "Remove link"
	actionRemoveComment = "Remove comment"
)

// modLogPage is the web component hosting the mod-log view.
const modLogPage = "mod-log-page"

var (
	// modLogFilter opens the username filter of the mod-log view.
	modLogFilter = browser.Path(modLogPage, "mod-log-username-filter")

	// modLogFilterDone confirms the username filter.
	modLogFilterDone = browser.Path(modLogPage, "mod-log-username-filter", `faceplate-form button[data-testid="done-btn"]`)

	// searchLink and searchText read a search result row. The text
	// lives in a different place per kind.
	searchLink = Field{Name: "link", Selector: "a[href]", Attr: "href"}

	searchText = map[Kind]Field{
		KindPosts:    {Name: "text", Selector: "a[aria-label]", Attr: "aria-label"},
		KindComments: {Name: "text", Selector: "p"},
	}

	// modLogRows reads the removal table. Columns 4 and 5 hold the
	// action and the removed content.
	modLogRows = RowSpec{
		Row: "table.mod-log-table tbody tr",
		Fields: []Field{
			{Name: "action", Selector: "td:nth-child(4)"},
			{Name: "content", Selector: "td:nth-child(5)"},
			{Name: "link", Selector: "td:nth-child(5) a[href]", Attr: "href"},
		},
	}
)

// Extractor gathers evidence about one user from rendered pages.
// It is safe for concurrent use by many evaluations, each with its own page.
type Extractor struct {
	base        *url.URL
	community   string
	lock        *surface.Lock
	throttle    *throttle.Throttle
	renderDelay time.Duration
	frontDelay  time.Duration
	waitTimeout time.Duration
	snapshotDir string
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRenderDelay sets the settle time after a results page loads.
func WithRenderDelay(d time.Duration) Option {
	return func(e *Extractor) {
		e.renderDelay = d
	}
}

// WithWaitTimeout sets how long the mod-log view may take to appear.
func WithWaitTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.waitTimeout = d
	}
}

// WithSnapshotDir writes every captured document to dir as
// debug-<kind>-<user>.html.
func WithSnapshotDir(dir string) Option {
	return func(e *Extractor) {
		e.snapshotDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor for community on the site at baseURL.
// lock serializes the mod-log filter sequence, which needs the visible tab.
func New(baseURL, community string, lock *surface.Lock, th *throttle.Throttle, opts ...Option) (*Extractor, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	e := &Extractor{
		base:        base,
		community:   community,
		lock:        lock,
		throttle:    th,
		renderDelay: DefaultRenderDelay,
		frontDelay:  DefaultFrontDelay,
		waitTimeout: DefaultWaitTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SearchURL returns the community search for content of kind by username.
func (e *Extractor) SearchURL(username string, kind Kind) string {
	q := url.Values{}
	q.Set("q", "author:"+username)
	q.Set("type", string(kind))
	return e.base.String() + "/r/" + e.community + "/search/?" + q.Encode()
}

// ModLogURL returns the mod log of the community filtered to username.
func (e *Extractor) ModLogURL(username string) string {
	q := url.Values{}
	q.Set("pageSize", "100")
	q.Set("authorUsername", username)
	return e.base.String() + "/mod/" + e.community + "/log?" + q.Encode()
}

// Search samples the user's submissions and replies in the community.
// Results without a link or text are dropped.
func (e *Extractor) Search(ctx context.Context, page browser.Page, username string) ([]model.EvidenceRecord, error) {
	var records []model.EvidenceRecord
	for _, kind := range []Kind{KindPosts, KindComments} {
		doc, err := e.capture(ctx, page, e.SearchURL(username, kind), kind, username)
		if err != nil {
			return nil, err
		}
		spec := RowSpec{Row: "search-telemetry-tracker", Fields: []Field{searchLink, searchText[kind]}}
		for _, row := range Structured(doc, spec) {
			rec, err := model.NewEvidenceRecord(e.resolve(row["link"]), row["text"], false)
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
	}
	e.logger.Debug("search sampled", "user", username, "records", len(records))
	return records, nil
}

// ModLog reads the content removals recorded for the user.
//
// The filtered log only renders after the username filter widget is
// operated, which needs the tab in front; that sequence runs under the
// surface lock. A log view that never appears, or a widget that is not
// there, yields no records.
//
// A removal keeps the link of the removed content as its URL and falls
// back to the filtered log URL only without one. Removals in distinct
// threads therefore count separately, which can raise the evidence total
// compared with giving every entry the log URL.
func (e *Extractor) ModLog(ctx context.Context, page browser.Page, username string) ([]model.EvidenceRecord, error) {
	logURL := e.ModLogURL(username)
	if err := page.Navigate(ctx, logURL); err != nil {
		return nil, err
	}
	if err := page.WaitVisible(ctx, modLogPage, e.waitTimeout); err != nil {
		return nil, e.structural(err, username, "mod-log view missing")
	}

	e.logger.Debug("waiting for front tab", "user", username, "queued", e.lock.Waiting())
	err := e.lock.Do(ctx, func(ctx context.Context) error {
		if err := page.BringToFront(ctx); err != nil {
			return err
		}
		if err := e.throttle.Wait(ctx, e.frontDelay); err != nil {
			return err
		}
		if err := page.Click(ctx, modLogFilter); err != nil {
			return err
		}
		return page.Click(ctx, modLogFilterDone)
	})
	if err != nil {
		return nil, e.structural(err, username, "mod-log filter missing")
	}

	if err := e.throttle.Wait(ctx, e.renderDelay); err != nil {
		return nil, err
	}
	doc, err := e.snapshotCurrent(ctx, page, kindModLog, username)
	if err != nil {
		return nil, err
	}

	var records []model.EvidenceRecord
	for _, row := range Structured(doc, modLogRows) {
		if row["action"] != actionRemoveLink && row["action"] != actionRemoveComment {
			continue
		}
		target := logURL
		if row["link"] != "" {
			target = e.resolve(row["link"])
		}
		rec, err := model.NewEvidenceRecord(target, row["content"], true)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	e.logger.Debug("mod log sampled", "user", username, "records", len(records))
	return records, nil
}

// structural turns a missing element into an empty result. Other errors,
// cancellation included, are returned.
func (e *Extractor) structural(err error, username, what string) error {
	if errors.Is(err, browser.ErrElementNotFound) {
		e.logger.Warn(what, "user", username, "error", err)
		return nil
	}
	return err
}

// capture navigates, waits for the page to settle and parses it.
func (e *Extractor) capture(ctx context.Context, page browser.Page, target string, kind Kind, username string) (*goquery.Document, error) {
	if err := page.Navigate(ctx, target); err != nil {
		return nil, err
	}
	if err := e.throttle.Wait(ctx, e.renderDelay); err != nil {
		return nil, err
	}
	return e.snapshotCurrent(ctx, page, kind, username)
}

// snapshotCurrent captures and parses the current document, keeping a
// copy in the snapshot directory when one is configured.
func (e *Extractor) snapshotCurrent(ctx context.Context, page browser.Page, kind Kind, username string) (*goquery.Document, error) {
	content, err := page.Content(ctx)
	if err != nil {
		return nil, err
	}
	e.snapshot(kind, username, content)
	doc, err := ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s page: %w", kind, err)
	}
	return doc, nil
}

// snapshot writes content to the snapshot directory. Failures are logged.
func (e *Extractor) snapshot(kind Kind, username, content string) {
	if e.snapshotDir == "" {
		return
	}
	if err := os.MkdirAll(e.snapshotDir, 0o750); err != nil {
		e.logger.Warn("failed to create snapshot directory", "dir", e.snapshotDir, "error", err)
		return
	}
	name := fmt.Sprintf("debug-%s-%s.html", kind, filepath.Base(username))
	if err := os.WriteFile(filepath.Join(e.snapshotDir, name), []byte(content), 0o600); err != nil {
		e.logger.Warn("failed to write snapshot", "file", name, "error", err)
	}
}

// resolve makes href absolute against the site. Empty input stays empty.
func (e *Extractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}
