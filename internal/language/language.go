package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the ISO 639-3 code for text that could not be classified.
const Undetermined = "und"

// ErrTooFewLanguages is returned when fewer than two usable candidate
// languages are configured. Detection needs something to choose between.
var ErrTooFewLanguages = errors.New("at least two known candidate languages are required")

// ErrUnsupportedLanguage is returned for a language the detector cannot name.
var ErrUnsupportedLanguage = errors.New("language not supported by the detector")

// Detector maps text to an ISO 639-3 code, or Undetermined.
type Detector interface {
	Detect(text string) string
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(text string) string

// Detect calls f(text).
func (f DetectorFunc) Detect(text string) string {
	return f(text)
}

// LinguaDetector is a Detector backed by lingua-go.
// It is safe for concurrent use.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector restricted to the given ISO 639-3
// codes. Unknown codes are skipped. A minRelativeDistance above zero makes
// the detector answer Undetermined for short or mixed texts instead of
// guessing.
func NewLinguaDetector(codes []string, minRelativeDistance float64) (*LinguaDetector, error) {
	langs := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		if l, ok := linguaLanguage(code); ok {
			langs = append(langs, l)
		}
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("%w: got %v", ErrTooFewLanguages, codes)
	}

	// lingua panics outside [0, 0.99].
	minRelativeDistance = max(0, min(minRelativeDistance, 0.99))
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithMinimumRelativeDistance(minRelativeDistance).
		Build()
	return &LinguaDetector{detector: detector}, nil
}

// Detect returns the lower-case ISO 639-3 code of the most likely language.
func (d *LinguaDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return Undetermined
	}
	l, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Undetermined
	}
	return strings.ToLower(l.IsoCode639_3().String())
}

// linguaLanguage finds the lingua language for an ISO 639 code.
func linguaLanguage(code string) (lingua.Language, bool) {
	code = Canonical(code)
	for _, l := range lingua.AllLanguages() {
		if strings.EqualFold(l.IsoCode639_3().String(), code) {
			return l, true
		}
	}
	return lingua.Unknown, false
}

// Supported reports whether the detector can answer with code.
func Supported(code string) bool {
	_, ok := linguaLanguage(code)
	return ok
}

// Known reports whether code is a recognised ISO 639 base language.
func Known(code string) bool {
	_, err := language.ParseBase(strings.TrimSpace(code))
	return err == nil
}

// Canonical returns the lower-case ISO 639-3 form of a recognised code, so
// that "nl", "NLD" and "nld" compare equal. Unrecognised codes are only
// trimmed and lower-cased.
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	base, err := language.ParseBase(code)
	if err != nil {
		return code
	}
	return base.ISO3()
}

// Contains reports whether codes holds the same language as code.
func Contains(codes []string, code string) bool {
	want := Canonical(code)
	for _, c := range codes {
		if Canonical(c) == want {
			return true
		}
	}
	return false
}

// IsTarget reports whether code counts as the target language.
// Empty, Undetermined and unrecognised codes count as the target.
func IsTarget(code, target string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Undetermined || !Known(code) {
		return true
	}
	return Canonical(code) == Canonical(target)
}

// DisplayName returns the English name of an ISO 639 code, e.g. "Dutch"
// for "nld". Unknown codes are returned unchanged.
func DisplayName(code string) string {
	base, err := language.ParseBase(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(language.Make(base.String()))
	if name == "" {
		return code
	}
	return name
}
