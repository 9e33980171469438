package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/banreview/internal/browser"
	"github.com/nao1215/banreview/internal/browser/browsertest"
	"github.com/nao1215/banreview/internal/surface"
	"github.com/nao1215/banreview/internal/throttle"
)

const testBase = "https://forum.example"

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	opts = append([]Option{WithRenderDelay(0)}, opts...)
	e, err := New(testBase, "nederlands", &surface.Lock{}, throttle.New(throttle.WithJitter(0, 0)), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestExtractor_URLs(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	if got, want := e.SearchURL("jan", KindPosts), testBase+"/r/nederlands/search/?q=author%3Ajan&type=posts"; got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
	if got, want := e.ModLogURL("jan"), testBase+"/mod/nederlands/log?authorUsername=jan&pageSize=100"; got != want {
		t.Errorf("ModLogURL() = %q, want %q", got, want)
	}
}

func TestExtractor_Search(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	b := browsertest.New(map[string]string{
		e.SearchURL("jan", KindPosts): `
			<search-telemetry-tracker><a href="/r/nederlands/comments/abc123/fietsen/" aria-label="Fietsen in de regen"></a></search-telemetry-tracker>
			<search-telemetry-tracker><a href="/r/nederlands/comments/def456/leeg/"></a></search-telemetry-tracker>`,
		e.SearchURL("jan", KindComments): `
			<search-telemetry-tracker><a href="/r/nederlands/comments/abc123/fietsen/c0mm3nt/">thread</a><p> Ja, dat klopt. </p></search-telemetry-tracker>
			<search-telemetry-tracker><p>no link</p></search-telemetry-tracker>`,
	})
	page, err := b.NewPage(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	records, err := e.Search(t.Context(), page, "jan")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	if records[0].URL != testBase+"/r/nederlands/comments/abc123/fietsen/" || records[0].Text != "Fietsen in de regen" {
		t.Errorf("unexpected post record: %+v", records[0])
	}
	if records[1].Text != "Ja, dat klopt." || records[1].IsModLogEntry {
		t.Errorf("unexpected comment record: %+v", records[1])
	}
}

func TestExtractor_Search_Empty(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	page, err := browsertest.New(nil).NewPage(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	records, err := e.Search(t.Context(), page, "nobody")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %+v", records)
	}
}

const modLogTable = `<table class="mod-log-table"><tbody>
	<tr><td>1d</td><td>mod</td><td>jan</td><td>Remove comment</td><td><a href="/r/nederlands/comments/abc123/x/r3ply/">This is English</a></td></tr>
	<tr><td>2d</td><td>mod</td><td>jan</td><td>Remove link</td><td>Titel zonder link</td></tr>
	<tr><td>3d</td><td>mod</td><td>jan</td><td>Ban user</td><td>something</td></tr>
	<tr><td>4d</td><td>mod</td><td>jan</td><td>Remove comment</td><td>  </td></tr>
</tbody></table>`

func TestExtractor_ModLog_LogsFrontQueue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestExtractor(t, WithLogger(logger))
	b := browsertest.New(map[string]string{e.ModLogURL("jan"): modLogTable})
	page, err := b.NewPage(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.ModLog(t.Context(), page, "jan"); err != nil {
		t.Fatalf("ModLog() error = %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "waiting for front tab") || !strings.Contains(output, "queued=0") {
		t.Errorf("expected the front tab queue in the log, got:\n%s", output)
	}
}

func TestExtractor_ModLog(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	b := browsertest.New(map[string]string{e.ModLogURL("jan"): modLogTable})
	page, err := b.NewPage(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	fake := page.(*browsertest.Page)

	records, err := e.ModLog(t.Context(), page, "jan")
	if err != nil {
		t.Fatalf("ModLog() error = %v", err)
	}

	t.Run("keeps removals with content", func(t *testing.T) {
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %+v", records)
		}
		for _, r := range records {
			if !r.IsModLogEntry {
				t.Errorf("record not flagged as mod-log entry: %+v", r)
			}
		}
	})

	t.Run("content link wins over log URL", func(t *testing.T) {
		if records[0].URL != testBase+"/r/nederlands/comments/abc123/x/r3ply/" {
			t.Errorf("unexpected url %q", records[0].URL)
		}
		if records[1].URL != e.ModLogURL("jan") {
			t.Errorf("expected log URL fallback, got %q", records[1].URL)
		}
	})

	t.Run("filter sequence runs in front", func(t *testing.T) {
		if fake.Fronted() != 1 {
			t.Errorf("expected one BringToFront, got %d", fake.Fronted())
		}
		clicks := fake.Clicks()
		if len(clicks) != 2 || !strings.HasSuffix(clicks[0], "mod-log-username-filter") || !strings.Contains(clicks[1], "done-btn") {
			t.Errorf("unexpected clicks: %v", clicks)
		}
	})
}

func TestExtractor_ModLog_StructuralMiss(t *testing.T) {
	t.Parallel()

	t.Run("missing view yields no records", func(t *testing.T) {
		t.Parallel()

		e := newTestExtractor(t)
		b := browsertest.New(nil)
		b.Hidden["mod-log-page"] = true
		page, _ := b.NewPage(t.Context())

		records, err := e.ModLog(t.Context(), page, "jan")
		if err != nil || len(records) != 0 {
			t.Errorf("ModLog() = %v, %v; want no records and no error", records, err)
		}
	})

	t.Run("missing filter widget yields no records and frees the lock", func(t *testing.T) {
		t.Parallel()

		lock := &surface.Lock{}
		e, err := New(testBase, "nederlands", lock, throttle.New(throttle.WithJitter(0, 0)), WithRenderDelay(0))
		if err != nil {
			t.Fatal(err)
		}
		b := browsertest.New(nil)
		b.OnClick = func(_ *browsertest.Page, path browser.ControlPath) error {
			return browser.ErrElementNotFound
		}
		page, _ := b.NewPage(t.Context())

		records, err := e.ModLog(t.Context(), page, "jan")
		if err != nil || len(records) != 0 {
			t.Errorf("ModLog() = %v, %v; want no records and no error", records, err)
		}
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		if err := lock.Acquire(ctx); err != nil {
			t.Fatalf("lock not released: %v", err)
		}
		lock.Release()
	})

	t.Run("cancellation is an error", func(t *testing.T) {
		t.Parallel()

		e := newTestExtractor(t)
		page, _ := browsertest.New(nil).NewPage(t.Context())
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := e.ModLog(ctx, page, "jan"); err == nil {
			t.Error("expected an error for a cancelled context")
		}
	})
}

func TestExtractor_Snapshots(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "scrape_html")
	e := newTestExtractor(t, WithSnapshotDir(dir))
	b := browsertest.New(map[string]string{e.ModLogURL("jan"): modLogTable})
	page, _ := b.NewPage(t.Context())

	if _, err := e.Search(t.Context(), page, "jan"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ModLog(t.Context(), page, "jan"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"debug-posts-jan.html", "debug-comments-jan.html", "debug-modlog-jan.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("snapshot %s missing: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "debug-modlog-jan.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "mod-log-table") {
		t.Errorf("mod-log snapshot does not hold the page: %s", data)
	}
}
