package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/banreview/internal/language"
)

// Default configuration values.
// These reproduce the settings the review was first run with.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "banreview"

	// DefaultBaseURL is the site hosting the community.
	DefaultBaseURL = "https://www.reddit.com"

	// DefaultCommunity is the community whose ban list is reviewed.
	DefaultCommunity = "nederlands"

	// DefaultPolicyPhrase is the ban-reason phrase that marks a language-rule ban.
	// Matching is case-insensitive after whitespace normalization.
	DefaultPolicyPhrase = "de voertaal is Nederlands"

	// DefaultTargetLanguage is the ISO 639-3 code of the community language.
	DefaultTargetLanguage = "nld"

	// DefaultConcurrency is the ceiling on simultaneous evaluations.
	// Higher values trip the site's anti-automation defenses.
	DefaultConcurrency = 20

	// DefaultJitterMin and DefaultJitterMax bound the random delay added
	// to every throttled action.
	DefaultJitterMin = 20 * time.Millisecond
	DefaultJitterMax = 50 * time.Millisecond

	// DefaultPageLimit caps how many ban list pages are visited.
	DefaultPageLimit = 999

	// DefaultBanListPageSize is the number of rows requested per ban list page.
	DefaultBanListPageSize = 100

	// DefaultPageLoadTimeout is how long the next ban list page may take to show rows.
	DefaultPageLoadTimeout = 10 * time.Second

	// DefaultRenderDelay is the settle time after navigating a results page.
	DefaultRenderDelay = 2 * time.Second

	// DefaultSessionFile is the session snapshot file name.
	DefaultSessionFile = "cookies.json"

	// DefaultOutputDir is the directory receiving reports and the run log.
	DefaultOutputDir = "result"

	// DefaultMinRelativeDistance is the lingua minimum relative distance.
	// Short or mixed texts below it are reported as unclassified.
	DefaultMinRelativeDistance = 0.1

	// DefaultUserAgent is the desktop browser user agent presented to the site.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// DefaultCandidateLanguages are the languages the detector chooses between.
var DefaultCandidateLanguages = []string{
	"nld", "eng", "deu", "fra", "spa", "ita", "por", "tur", "ara", "pol",
}

// Config holds all options of a review run.
// It is populated from defaults, the YAML config file and CLI flags, in
// that order, and passed down explicitly instead of living in globals.
type Config struct {
	// BaseURL is the scheme and host of the site, without trailing slash.
	BaseURL string

	// Community is the community name as used in URLs.
	Community string

	// PolicyPhrase marks a ban as a language-rule ban.
	PolicyPhrase string

	// TargetLanguage is the ISO 639-3 code activity is expected in.
	TargetLanguage string

	// CandidateLanguages are ISO 639-3 codes the detector may answer with.
	CandidateLanguages []string

	// MinRelativeDistance tunes how sure the detector must be before it
	// names a language.
	MinRelativeDistance float64

	// Concurrency is the maximum number of evaluations in flight.
	Concurrency int

	// JitterMin and JitterMax bound the random part of every delay.
	JitterMin time.Duration
	JitterMax time.Duration

	// RequestsPerSecond caps throttled actions across all tasks. 0 disables it.
	RequestsPerSecond float64

	// RenderDelay is the wait after navigating to a page before capturing it.
	RenderDelay time.Duration

	// PageLimit caps the number of ban list pages visited.
	PageLimit int

	// BanListPageSize is the row count requested per ban list page.
	BanListPageSize int

	// PageLoadTimeout bounds the wait for the next ban list page.
	PageLoadTimeout time.Duration

	// SessionFile is the session snapshot read at startup and written after login.
	SessionFile string

	// OutputDir receives the CSV reports, the summary and the run log.
	OutputDir string

	// SnapshotDir, when set, receives every captured HTML document.
	SnapshotDir string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB enables the run history database.
	SaveToDB bool

	// Headless runs the browser without a window. Manual login needs a window.
	Headless bool

	// UserAgent is the browser user agent.
	UserAgent string

	// ChromePath is the browser executable. Empty means search the PATH.
	ChromePath string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		Community:           DefaultCommunity,
		PolicyPhrase:        DefaultPolicyPhrase,
		TargetLanguage:      DefaultTargetLanguage,
		CandidateLanguages:  append([]string(nil), DefaultCandidateLanguages...),
		MinRelativeDistance: DefaultMinRelativeDistance,
		Concurrency:         DefaultConcurrency,
		JitterMin:           DefaultJitterMin,
		JitterMax:           DefaultJitterMax,
		RenderDelay:         DefaultRenderDelay,
		PageLimit:           DefaultPageLimit,
		BanListPageSize:     DefaultBanListPageSize,
		PageLoadTimeout:     DefaultPageLoadTimeout,
		SessionFile:         DefaultSessionFile,
		OutputDir:           DefaultOutputDir,
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
		UserAgent:           DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for banreview.
// On Linux: ~/.local/share/banreview
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for banreview.
// On Linux: ~/.config/banreview
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Community == "" {
		return ErrNoCommunity
	}
	if c.PolicyPhrase == "" {
		return ErrNoPolicyPhrase
	}
	if len(c.TargetLanguage) != 3 || !language.Known(c.TargetLanguage) {
		return ErrInvalidTargetLanguage
	}
	if !language.Contains(c.CandidateLanguages, c.TargetLanguage) {
		return fmt.Errorf("%w: %s not in %v", ErrTargetNotCandidate, c.TargetLanguage, c.CandidateLanguages)
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JitterMin < 0 || c.JitterMax < c.JitterMin || c.RenderDelay < 0 {
		return ErrInvalidDelay
	}
	if c.PageLimit <= 0 {
		return ErrInvalidPageLimit
	}
	return nil
}

// BanListURL returns the first ban list page of the community.
func (c *Config) BanListURL() string {
	return c.CommunityURL("mod", "banned") + "?pageSize=" + strconv.Itoa(c.BanListPageSize)
}

// CommunityURL joins path segments below the community, e.g.
// CommunityURL("mod", "log") -> https://www.reddit.com/mod/nederlands/log.
// A leading "r" segment yields the public community path.
func (c *Config) CommunityURL(section string, rest ...string) string {
	u := c.BaseURL + "/" + section + "/" + c.Community
	for _, r := range rest {
		u += "/" + r
	}
	return u
}
