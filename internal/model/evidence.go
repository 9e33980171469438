package model

import (
	"regexp"
	"strings"
)

// EvidenceRecord is one sampled piece of user activity, or one mod-log
// removal entry when IsModLogEntry is set.
type EvidenceRecord struct {
	URL           string `json:"url"`
	Text          string `json:"sampled_text"`
	IsModLogEntry bool   `json:"modlog,omitempty"`
}

// NewEvidenceRecord validates and builds an EvidenceRecord.
// Records without a URL or text never reach the evaluator.
func NewEvidenceRecord(rawURL, text string, modLog bool) (EvidenceRecord, error) {
	rawURL = strings.TrimSpace(rawURL)
	text = strings.TrimSpace(text)
	if rawURL == "" {
		return EvidenceRecord{}, ErrEmptyURL
	}
	if text == "" {
		return EvidenceRecord{}, ErrEmptyText
	}
	return EvidenceRecord{URL: rawURL, Text: text, IsModLogEntry: modLog}, nil
}

// ClassifiedEvidence is an EvidenceRecord after language detection.
type ClassifiedEvidence struct {
	EvidenceRecord

	// LanguageCode is the ISO 639-3 code returned by the detector,
	// "und" when the text could not be classified.
	LanguageCode string `json:"lang_detected"`

	// IsTargetLanguage reports whether the record counts toward the
	// target-language ratio. Unclassified text counts as target language.
	IsTargetLanguage bool `json:"is_target_language"`

	// IsComment is set for search evidence whose URL points at a comment
	// rather than at the submission itself.
	IsComment bool `json:"is_comment,omitempty"`
}

// threadPattern matches ".../comments/<thread>/<slug>[/<comment>]".
var threadPattern = regexp.MustCompile(`comments/([a-z0-9]+)/[^/]+(/[a-z0-9]+)?`)

// ThreadKey identifies the discussion a content URL belongs to.
type ThreadKey struct {
	// ThreadID is the id of the originating submission.
	ThreadID string

	// IsComment is true when the URL addresses a reply inside the thread.
	IsComment bool
}

// ParseThreadKey extracts the ThreadKey from a content URL.
// ok is false when the URL does not address a thread.
func ParseThreadKey(contentURL string) (key ThreadKey, ok bool) {
	m := threadPattern.FindStringSubmatch(contentURL)
	if m == nil {
		return ThreadKey{}, false
	}
	return ThreadKey{ThreadID: m[1], IsComment: m[2] != ""}, true
}
