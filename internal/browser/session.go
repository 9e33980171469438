package browser

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/banreview/internal/model"
)

// loginLinkSelector matches the login link shown to anonymous visitors.
const loginLinkSelector = `a[href*="/login"]`

// Session establishes an authenticated browser session.
type Session struct {
	browser Browser
	path    string
	baseURL string
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPrompt sets where login instructions are printed and where the
// operator confirmation is read from. Defaults are os.Stdout and os.Stdin.
func WithPrompt(in io.Reader, out io.Writer) SessionOption {
	return func(s *Session) {
		s.in = in
		s.out = out
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session that keeps its snapshot at path.
func NewSession(b Browser, path, baseURL string, opts ...SessionOption) *Session {
	s := &Session{
		browser: b,
		path:    path,
		baseURL: strings.TrimRight(baseURL, "/"),
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Establish restores the saved session, or runs an interactive login and
// saves the new session. A broken or missing snapshot is not an error:
// it only means the operator has to log in.
func (s *Session) Establish(ctx context.Context) error {
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close() //nolint:errcheck // tab close failure is harmless

	restored, err := s.restore(ctx)
	if err != nil {
		s.logger.Warn("session snapshot not usable", "path", s.path, "error", err)
	}
	if restored {
		loggedIn, err := s.loggedIn(ctx, page)
		if err == nil && loggedIn {
			s.logger.Info("logged in using saved session", "path", s.path)
			return nil
		}
		if err != nil {
			s.logger.Warn("session check failed", "error", err)
		}
	}

	return s.interactiveLogin(ctx, page)
}

// restore installs the cookies of the snapshot file.
func (s *Session) restore(ctx context.Context) (bool, error) {
	cookies, err := LoadCookies(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := s.browser.SetCookies(ctx, cookies); err != nil {
		return false, err
	}
	return true, nil
}

// loggedIn opens the site root and checks that no login link is offered.
func (s *Session) loggedIn(ctx context.Context, page Page) (bool, error) {
	if err := page.Navigate(ctx, s.baseURL); err != nil {
		return false, err
	}
	html, err := page.Content(ctx)
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse site root: %w", err)
	}
	return doc.Find(loginLinkSelector).Length() == 0, nil
}

// interactiveLogin shows the login page and waits for the operator.
func (s *Session) interactiveLogin(ctx context.Context, page Page) error {
	if err := page.Navigate(ctx, s.baseURL+"/login"); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Log in manually in the browser window, then press ENTER here.")

	if err := s.waitForOperator(ctx); err != nil {
		return err
	}

	cookies, err := s.browser.Cookies(ctx)
	if err != nil {
		return err
	}
	if err := SaveCookies(s.path, cookies); err != nil {
		return err
	}
	s.logger.Info("session saved", "path", s.path, "cookies", len(cookies))
	return nil
}

// waitForOperator blocks until one line is read or ctx ends.
func (s *Session) waitForOperator(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(s.in).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoginAborted, err)
		}
		return nil
	}
}

// LoadCookies reads a session snapshot.
func LoadCookies(path string) ([]model.Cookie, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-chosen snapshot path
	if err != nil {
		return nil, err
	}
	var cookies []model.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse session snapshot %s: %w", path, err)
	}
	return cookies, nil
}

// SaveCookies writes a session snapshot readable by the owner only.
func SaveCookies(path string, cookies []model.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}
