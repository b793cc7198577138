package rollout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envLine(dir string) string {
	return `{"type":"message","role":"user","content":[{"type":"input_text","text":"<environment_context>\n  <cwd>` + dir + `</cwd>\n</environment_context>"}]}`
}

func TestSortKey_PrefersFilenameStamp(t *testing.T) {
	mtime := time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local)
	got := SortKey("rollout-2024-01-02T09-00-00-019ac5e9-684f-7741-9974-4246554edb05.jsonl", mtime)
	if got != "20240102090000" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := SortKey("notes.jsonl", mtime); got != "20300101000000" {
		t.Fatalf("expected mtime fallback, got %q", got)
	}
}

func TestRank_NewestStampFirst(t *testing.T) {
	now := time.Now()
	files := []SessionFile{
		newSessionFile("/s/rollout-2024-01-01T10-00-00-a.jsonl", 1, now),
		newSessionFile("/s/rollout-2024-01-02T09-00-00-b.jsonl", 1, now.Add(-time.Hour)),
	}
	Rank(files)
	if files[0].Name != "rollout-2024-01-02T09-00-00-b.jsonl" {
		t.Fatalf("expected Jan 2 session first, got %q", files[0].Name)
	}
}

func TestRank_TotalOrderOnEqualKeys(t *testing.T) {
	stamp := time.Date(2024, 5, 5, 5, 5, 5, 0, time.Local)
	a := []SessionFile{newSessionFile("/x/a.jsonl", 1, stamp), newSessionFile("/x/b.jsonl", 1, stamp)}
	b := []SessionFile{a[1], a[0]}
	Rank(a)
	Rank(b)
	if a[0].Path != b[0].Path || a[1].Path != b[1].Path {
		t.Fatalf("rank depends on input order: %v vs %v", a, b)
	}
}

func TestLocate_FiltersByCwdMarker(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, "2024/01/01/rollout-2024-01-01T10-00-00-a.jsonl", envLine("/work/app"))
	writeLog(t, root, "2024/01/02/rollout-2024-01-02T09-00-00-b.jsonl", `garbage`, envLine("/work/app"))
	writeLog(t, root, "2024/01/03/rollout-2024-01-03T09-00-00-c.jsonl", envLine("/work/other"))
	writeLog(t, root, "2024/01/03/readme.txt", envLine("/work/app"))

	files, err := Locate(root, "/work/app", nil)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 matching sessions, got %d: %#v", len(files), files)
	}
	if files[0].Name != "rollout-2024-01-02T09-00-00-b.jsonl" {
		t.Fatalf("expected newest first, got %q", files[0].Name)
	}
}

func TestLocate_MissingRoot(t *testing.T) {
	files, err := Locate(filepath.Join(t.TempDir(), "missing"), "/x", nil)
	if err != nil {
		t.Fatalf("expected no error for missing root, got %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestMatchesDir_RequiresMarker(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "s.jsonl",
		`{"type":"message","role":"user","content":[{"type":"input_text","text":"please look at /work/app"}]}`,
	)
	if MatchesDir(path, "/work/app") {
		t.Fatalf("directory mention without cwd marker must not match")
	}
}

func TestSelect(t *testing.T) {
	now := time.Now()
	ranked := []SessionFile{
		newSessionFile("/s/one.jsonl", 1, now),
		newSessionFile("/s/two.jsonl", 1, now),
	}

	got, err := Select(ranked, 2, "")
	if err != nil || got.Path != "/s/two.jsonl" {
		t.Fatalf("expected second session, got %#v err=%v", got, err)
	}

	for _, ordinal := range []int{0, 3, -1} {
		_, err := Select(ranked, ordinal, "")
		var rangeErr *RangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("ordinal %d: expected RangeError, got %v", ordinal, err)
		}
		if rangeErr.Count != 2 {
			t.Fatalf("ordinal %d: expected count 2, got %d", ordinal, rangeErr.Count)
		}
	}

	if _, err := Select(nil, 1, ""); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions, got %v", err)
	}
}

func TestSelect_ExplicitPathWins(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "pinned.jsonl")
	if err := os.WriteFile(pinned, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Select(nil, 5, pinned)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Path != pinned || got.Size != 3 {
		t.Fatalf("unexpected pinned session %#v", got)
	}
}

func TestParseOrdinal(t *testing.T) {
	if n, err := ParseOrdinal("3"); err != nil || n != 3 {
		t.Fatalf("expected 3, got %d err=%v", n, err)
	}
	_, err := ParseOrdinal("abc")
	var selErr *SelectorError
	if !errors.As(err, &selErr) || selErr.Input != "abc" {
		t.Fatalf("expected SelectorError naming input, got %v", err)
	}
}

func TestStampTime(t *testing.T) {
	ts, ok := StampTime("rollout-2024-01-02T09-08-07-019ac5e9.jsonl")
	if !ok {
		t.Fatalf("expected a stamp")
	}
	want := time.Date(2024, 1, 2, 9, 8, 7, 0, time.Local)
	if !ts.Equal(want) {
		t.Fatalf("got %v want %v", ts, want)
	}
	if _, ok := StampTime("notes.jsonl"); ok {
		t.Fatalf("a name without a stamp has no start time")
	}
}
