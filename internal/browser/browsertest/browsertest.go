// Package browsertest provides an in-memory browser.Browser for tests.
//
// Documents are served from a URL to HTML map. Tests that need a page to
// change after a click (a pager, a filter widget) install an OnClick hook
// and replace the page content with SetContent.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/model"
)

// Browser is a fake browser.Browser.
type Browser struct {
	mu sync.Mutex

	// Documents maps a URL to the HTML returned after navigating there.
	Documents map[string]string

	// Hidden lists selectors WaitVisible reports as not visible.
	Hidden map[string]bool

	// OnClick runs on every Click. A nil hook accepts every click.
	OnClick func(p *Page, path browser.ControlPath) error

	// Enabled answers ControlEnabled. A nil hook reports every control enabled.
	Enabled func(p *Page, path browser.ControlPath) bool

	// NavigateDelay is slept on every Navigate.
	NavigateDelay time.Duration

	// NewPageErr makes NewPage fail.
	NewPageErr error

	cookies  []model.Cookie
	pages    []*Page
	openNow  int
	openPeak int
}

// New creates a fake browser serving documents.
func New(documents map[string]string) *Browser {
	if documents == nil {
		documents = map[string]string{}
	}
	return &Browser{Documents: documents, Hidden: map[string]bool{}}
}

// NewPage opens a fake tab.
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	p := &Page{b: b}
	b.pages = append(b.pages, p)
	b.openNow++
	b.openPeak = max(b.openPeak, b.openNow)
	return p, nil
}

// Cookies returns the cookies set so far.
func (b *Browser) Cookies(context.Context) ([]model.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Cookie(nil), b.cookies...), nil
}

// SetCookies stores cookies.
func (b *Browser) SetCookies(_ context.Context, cookies []model.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = append(b.cookies, cookies...)
	return nil
}

// Close does nothing.
func (b *Browser) Close() error { return nil }

// Pages returns every page opened so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// OpenPages returns the number of pages not yet closed.
func (b *Browser) OpenPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openNow
}

// PeakOpenPages returns the highest number of simultaneously open pages.
func (b *Browser) PeakOpenPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openPeak
}

// Page is a fake browser.Page.
type Page struct {
	b *Browser

	mu         sync.Mutex
	url        string
	content    string
	overridden bool
	visited    []string
	clicks     []string
	fronted    int
	closed     bool
}

// Navigate loads the document registered for url. Unknown URLs render an
// empty document.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if d := p.b.NavigateDelay; d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.overridden = false
	p.visited = append(p.visited, url)
	return nil
}

// WaitVisible fails for selectors listed in Browser.Hidden.
func (p *Page) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.b.mu.Lock()
	hidden := p.b.Hidden[selector]
	p.b.mu.Unlock()
	if hidden {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return nil
}

// Content returns the current document.
func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overridden {
		return p.content, nil
	}
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return fmt.Sprintf("<html><body>%s</body></html>", p.b.Documents[p.url]), nil
}

// Click records the click and runs Browser.OnClick.
func (p *Page) Click(ctx context.Context, path browser.ControlPath) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, path.String())
	p.mu.Unlock()
	if p.b.OnClick != nil {
		return p.b.OnClick(p, path)
	}
	return nil
}

// ControlEnabled asks Browser.Enabled.
func (p *Page) ControlEnabled(ctx context.Context, path browser.ControlPath) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.b.Enabled != nil {
		return p.b.Enabled(p, path), nil
	}
	return true, nil
}

// BringToFront counts the call.
func (p *Page) BringToFront(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fronted++
	return nil
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	wasClosed := p.closed
	p.closed = true
	p.mu.Unlock()
	if !wasClosed {
		p.b.mu.Lock()
		p.b.openNow--
		p.b.mu.Unlock()
	}
	return nil
}

// SetContent replaces the current document body until the next Navigate.
func (p *Page) SetContent(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = fmt.Sprintf("<html><body>%s</body></html>", body)
	p.overridden = true
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Visited returns every navigated URL in order.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// Clicks returns every clicked control path in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Fronted returns how often BringToFront was called.
func (p *Page) Fronted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fronted
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
