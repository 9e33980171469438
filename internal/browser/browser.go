package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/banreview/internal/model"
)

var (
	// ErrElementNotFound is returned when a selector or control path
	// does not resolve to an element.
	ErrElementNotFound = errors.New("element not found")

	// ErrLoginAborted is returned when the operator input ends before
	// the login was confirmed.
	ErrLoginAborted = errors.New("interactive login aborted")
)

// Browser opens pages that share one browser context (cookies, storage).
type Browser interface {
	// NewPage opens a new tab.
	NewPage(ctx context.Context) (Page, error)
	// Cookies returns all cookies of the browser context.
	Cookies(ctx context.Context) ([]model.Cookie, error)
	// SetCookies installs cookies into the browser context.
	SetCookies(ctx context.Context, cookies []model.Cookie) error
	// Close shuts the browser down.
	Close() error
}

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitVisible waits up to timeout for selector to match a visible element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the outer HTML of the rendered document.
	Content(ctx context.Context) (string, error)
	// Click clicks the element at path.
	Click(ctx context.Context, path ControlPath) error
	// ControlEnabled reports whether the element at path exists and is not disabled.
	ControlEnabled(ctx context.Context, path ControlPath) (bool, error)
	// BringToFront makes this tab the visible one.
	BringToFront(ctx context.Context) error
	// Close closes the tab.
	Close() error
}

// ControlPath addresses an element through nested shadow roots.
// ControlPath{"a-host", "button.next"} is the button.next inside the
// shadow root of the first a-host element.
type ControlPath []string

// Path is a shorthand for building a ControlPath.
func Path(selectors ...string) ControlPath {
	return ControlPath(selectors)
}

// controlScript is evaluated in the page to resolve a ControlPath.
// It returns {found, enabled} and clicks the element when click is true.
const controlScript = `(function(path, click) {
	let el = document.querySelector(path[0]);
	for (let i = 1; el && i < path.length; i++) {
		el = el.shadowRoot ? el.shadowRoot.querySelector(path[i]) : null;
	}
	if (!el) {
		return {found: false, enabled: false};
	}
	const enabled = !el.disabled;
	if (click) {
		el.click();
	}
	return {found: true, enabled: enabled};
})(%s, %t)`

// controlState is the result of controlScript.
type controlState struct {
	Found   bool `json:"found"`
	Enabled bool `json:"enabled"`
}

// script renders controlScript for the path.
func (p ControlPath) script(click bool) (string, error) {
	if len(p) == 0 {
		return "", ErrElementNotFound
	}
	encoded, err := json.Marshal([]string(p))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(controlScript, string(encoded), click), nil
}

// String joins the selectors with the shadow-piercing marker used in logs.
func (p ControlPath) String() string {
	return strings.Join(p, " >>> ")
}
