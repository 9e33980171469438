package evaluator

import (
	"testing"

	"github.com/nao1215/banreview/internal/model"
)

func evidence(url string, target bool) model.ClassifiedEvidence {
	return model.ClassifiedEvidence{
		EvidenceRecord:   model.EvidenceRecord{URL: url, Text: "text"},
		IsTargetLanguage: target,
	}
}

func modLogEvidence(url string, target bool) model.ClassifiedEvidence {
	c := evidence(url, target)
	c.IsModLogEntry = true
	return c
}

const (
	postURL  = "https://forum.example/r/nederlands/comments/abc123/titel/"
	replyURL = "https://forum.example/r/nederlands/comments/abc123/titel/r3ply/"
	otherURL = "https://forum.example/r/nederlands/comments/def456/ander/"
)

func TestDedupByThread(t *testing.T) {
	t.Parallel()

	t.Run("reply replaces post of the same thread", func(t *testing.T) {
		t.Parallel()
		got := DedupByThread([]model.ClassifiedEvidence{evidence(postURL, true), evidence(replyURL, true)})
		if len(got) != 1 || got[0].URL != replyURL || !got[0].IsComment {
			t.Errorf("expected only the reply to survive, got %+v", got)
		}
	})

	t.Run("reply first is kept over later post", func(t *testing.T) {
		t.Parallel()
		got := DedupByThread([]model.ClassifiedEvidence{evidence(replyURL, true), evidence(postURL, true)})
		if len(got) != 1 || got[0].URL != replyURL {
			t.Errorf("expected only the reply to survive, got %+v", got)
		}
	})

	t.Run("first of two posts wins", func(t *testing.T) {
		t.Parallel()
		second := evidence(postURL+"?x=1", false)
		got := DedupByThread([]model.ClassifiedEvidence{evidence(postURL, true), second})
		if len(got) != 1 || !got[0].IsTargetLanguage {
			t.Errorf("expected the first post, got %+v", got)
		}
	})

	t.Run("threads keep first-seen order", func(t *testing.T) {
		t.Parallel()
		got := DedupByThread([]model.ClassifiedEvidence{evidence(otherURL, true), evidence(postURL, true), evidence(replyURL, true)})
		if len(got) != 2 || got[0].URL != otherURL || got[1].URL != replyURL {
			t.Errorf("unexpected order: %+v", got)
		}
	})

	t.Run("urls without a thread are dropped", func(t *testing.T) {
		t.Parallel()
		got := DedupByThread([]model.ClassifiedEvidence{evidence("https://forum.example/user/jan", true)})
		if len(got) != 0 {
			t.Errorf("expected nothing, got %+v", got)
		}
	})
}

func TestDedupByURL(t *testing.T) {
	t.Parallel()

	a := evidence("https://x/a", true)
	b := evidence("https://x/b", true)
	a2 := evidence("https://x/a", false)

	got := DedupByURL([]model.ClassifiedEvidence{a, b, a2})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %+v", got)
	}
	if got[0].URL != "https://x/a" || got[0].IsTargetLanguage {
		t.Errorf("expected first position with last value, got %+v", got[0])
	}
}

func TestDedup(t *testing.T) {
	t.Parallel()

	t.Run("mod-log entry wins over activity with the same url", func(t *testing.T) {
		t.Parallel()
		got := Dedup(
			[]model.ClassifiedEvidence{evidence(replyURL, true)},
			[]model.ClassifiedEvidence{modLogEvidence(replyURL, false)},
		)
		if len(got) != 1 || !got[0].IsModLogEntry {
			t.Errorf("expected the mod-log entry, got %+v", got)
		}
	})

	t.Run("mod-log entries bypass thread dedup", func(t *testing.T) {
		t.Parallel()
		logURL := "https://forum.example/mod/nederlands/log?authorUsername=jan&pageSize=100"
		got := Dedup(nil, []model.ClassifiedEvidence{modLogEvidence(logURL, true), modLogEvidence(postURL, true)})
		if len(got) != 2 {
			t.Errorf("expected both mod-log entries, got %+v", got)
		}
	})

	t.Run("mod-log entries sharing a url collapse", func(t *testing.T) {
		t.Parallel()
		logURL := "https://forum.example/mod/nederlands/log"
		got := Dedup(nil, []model.ClassifiedEvidence{modLogEvidence(logURL, true), modLogEvidence(logURL, false)})
		if len(got) != 1 {
			t.Errorf("expected one entry, got %+v", got)
		}
	})

	t.Run("empty input gives empty non-nil result", func(t *testing.T) {
		t.Parallel()
		got := Dedup(nil, nil)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %#v", got)
		}
	})
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target int
		total  int
		want   bool
	}{
		{name: "no evidence", target: 0, total: 0, want: true},
		{name: "two records none in target language", target: 0, total: 2, want: true},
		{name: "four records none in target language", target: 0, total: 4, want: true},
		{name: "five records none in target language", target: 0, total: 5, want: false},
		{name: "7 of 10 is exactly 70 percent", target: 7, total: 10, want: true},
		{name: "6 of 10 is 60 percent", target: 6, total: 10, want: false},
		{name: "8 of 10", target: 8, total: 10, want: true},
		{name: "just under 70 percent", target: 69, total: 100, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Recommend(tt.target, tt.total); got != tt.want {
				t.Errorf("Recommend(%d, %d) = %v, want %v", tt.target, tt.total, got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	if got := Ratio(0, 0); got != 0 {
		t.Errorf("Ratio(0, 0) = %v, want 0", got)
	}
	if got := Ratio(7, 10); got != 70 {
		t.Errorf("Ratio(7, 10) = %v, want 70", got)
	}
}
