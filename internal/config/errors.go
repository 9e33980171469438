package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoCommunity is returned when no community is configured.
	ErrNoCommunity = errors.New("no community specified")

	// ErrNoPolicyPhrase is returned when the language-rule phrase is empty.
	// Without it every ban would be screened out.
	ErrNoPolicyPhrase = errors.New("no policy phrase specified")

	// ErrInvalidTargetLanguage is returned when the target language is not
	// a three-letter ISO 639-3 code.
	ErrInvalidTargetLanguage = errors.New("invalid target language: must be an ISO 639-3 code such as nld")

	// ErrTargetNotCandidate is returned when the target language is missing
	// from the candidate languages. The detector could never answer with it,
	// so every user would keep the ban.
	ErrTargetNotCandidate = errors.New("target language is not a candidate language")

	// ErrInvalidConcurrency is returned when the concurrency ceiling is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidDelay is returned for negative delays or an inverted jitter range.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative with jitter-min <= jitter-max")

	// ErrInvalidPageLimit is returned when the page limit is not positive.
	ErrInvalidPageLimit = errors.New("invalid page limit: must be positive")
)
