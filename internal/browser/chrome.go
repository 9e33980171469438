package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/banreview/internal/model"
)

// Chrome is a Browser driving a local Chrome through the DevTools protocol.
type Chrome struct {
	// browserCtx carries the chromedp browser; every tab is derived from it.
	browserCtx context.Context

	// cancel tears down the browser and then the allocator.
	cancel context.CancelFunc

	logger *slog.Logger
}

// chromeOptions collects ChromeOption values.
type chromeOptions struct {
	headless  bool
	userAgent string
	execPath  string
	logger    *slog.Logger
}

// ChromeOption configures Chrome.
type ChromeOption func(*chromeOptions)

// WithHeadless runs Chrome without a window. Interactive login and the
// front-surface widgets need a window, so this is meant for a restored session.
func WithHeadless(headless bool) ChromeOption {
	return func(o *chromeOptions) {
		o.headless = headless
	}
}

// WithUserAgent sets the user agent presented to the site.
func WithUserAgent(ua string) ChromeOption {
	return func(o *chromeOptions) {
		o.userAgent = ua
	}
}

// WithExecPath sets the Chrome executable. chromedp searches the usual
// install locations when it is empty.
func WithExecPath(path string) ChromeOption {
	return func(o *chromeOptions) {
		o.execPath = path
	}
}

// WithChromeLogger sets the logger.
func WithChromeLogger(logger *slog.Logger) ChromeOption {
	return func(o *chromeOptions) {
		o.logger = logger
	}
}

// NewChrome launches Chrome. The browser lives until Close is called or
// ctx is cancelled.
func NewChrome(ctx context.Context, opts ...ChromeOption) (*Chrome, error) {
	o := &chromeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", o.headless),
		chromedp.Flag("start-maximized", true),
	)
	if o.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(o.userAgent))
	}
	if o.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(o.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			o.logger.Debug("chromedp", "detail", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &Chrome{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		logger: o.logger,
	}, nil
}

// NewPage opens a new tab in the shared browser context.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	// The first Run creates the target and must use the tab context
	// itself: the target lives as long as the context of that call.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Cookies returns all cookies of the browser context.
func (c *Chrome) Cookies(ctx context.Context) ([]model.Cookie, error) {
	var cookies []*network.Cookie
	err := runWith(ctx, c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	out := make([]model.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, model.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Expires:  ck.Expires,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
			SameSite: string(ck.SameSite),
		})
	}
	return out, nil
}

// SetCookies installs cookies into the browser context.
func (c *Chrome) SetCookies(ctx context.Context, cookies []model.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
		if ck.SameSite != "" {
			p.SameSite = network.CookieSameSite(ck.SameSite)
		}
		// Session cookies carry a negative expiry.
		if ck.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}

	err := runWith(ctx, c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancel()
	return nil
}

// chromePage is a Page backed by one chromedp target.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, aborting when either ctx or the tab ends.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	return runWith(ctx, p.ctx, actions...)
}

// runWith runs actions in the chromedp context target while honouring the
// cancellation of the caller's ctx. A plain WithCancel child of a chromedp
// context aborts the actions without closing the tab.
func runWith(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
	}
	return nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture document: %w", err)
	}
	return html, nil
}

func (p *chromePage) Click(ctx context.Context, path ControlPath) error {
	state, err := p.control(ctx, path, true)
	if err != nil {
		return err
	}
	if !state.Found {
		return fmt.Errorf("%w: %s", ErrElementNotFound, path)
	}
	return nil
}

func (p *chromePage) ControlEnabled(ctx context.Context, path ControlPath) (bool, error) {
	state, err := p.control(ctx, path, false)
	if err != nil {
		return false, err
	}
	return state.Found && state.Enabled, nil
}

// control resolves path in the page and optionally clicks it.
func (p *chromePage) control(ctx context.Context, path ControlPath, click bool) (controlState, error) {
	var state controlState
	script, err := path.script(click)
	if err != nil {
		return state, err
	}
	if err := p.run(ctx, chromedp.Evaluate(script, &state)); err != nil {
		return state, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return state, nil
}

func (p *chromePage) BringToFront(ctx context.Context) error {
	return p.run(ctx, page.BringToFront())
}

// Close closes the tab. Cancelling a context created by chromedp.NewContext
// closes its target.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
