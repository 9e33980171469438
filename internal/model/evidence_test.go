package model

import (
	"errors"
	"testing"
)

// TestNewEvidenceRecord tests evidence validation.
func TestNewEvidenceRecord(t *testing.T) {
	t.Parallel()

	t.Run("valid record", func(t *testing.T) {
		t.Parallel()

		rec, err := NewEvidenceRecord(" https://example.com/x ", " hallo ", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.URL != "https://example.com/x" || rec.Text != "hallo" || !rec.IsModLogEntry {
			t.Errorf("unexpected record %+v", rec)
		}
	})

	t.Run("empty url is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewEvidenceRecord("  ", "text", false)
		if !errors.Is(err, ErrEmptyURL) {
			t.Errorf("expected ErrEmptyURL, got %v", err)
		}
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewEvidenceRecord("https://example.com", "\n", false)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})
}

// TestParseThreadKey tests thread id extraction from content URLs.
func TestParseThreadKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantOK  bool
		wantID  string
		comment bool
	}{
		{
			name:   "submission",
			url:    "https://www.reddit.com/r/nederlands/comments/1abcde/mijn_titel/",
			wantOK: true,
			wantID: "1abcde",
		},
		{
			name:    "comment reply",
			url:     "https://www.reddit.com/r/nederlands/comments/1abcde/mijn_titel/k9xyz12/",
			wantOK:  true,
			wantID:  "1abcde",
			comment: true,
		},
		{
			name:   "submission without trailing slash",
			url:    "https://www.reddit.com/r/nederlands/comments/1abcde/mijn_titel",
			wantOK: true,
			wantID: "1abcde",
		},
		{
			name:   "user profile is not a thread",
			url:    "https://www.reddit.com/user/someone",
			wantOK: false,
		},
		{
			name:   "mod log url is not a thread",
			url:    "https://www.reddit.com/mod/nederlands/log?pageSize=100",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, ok := ParseThreadKey(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if key.ThreadID != tt.wantID {
				t.Errorf("thread id = %q, want %q", key.ThreadID, tt.wantID)
			}
			if key.IsComment != tt.comment {
				t.Errorf("is comment = %v, want %v", key.IsComment, tt.comment)
			}
		})
	}
}
