package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"codex-resume/internal/rollout"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func testFiles() []rollout.SessionFile {
	return []rollout.SessionFile{
		{Path: "/s/b.jsonl", Name: "b.jsonl", Size: 2048, ModTime: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{Path: "/s/a.jsonl", Name: "a.jsonl", Size: 10, ModTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
}

func testSource() Source {
	return Source{
		Describe: func(f rollout.SessionFile) string { return "about " + f.Name },
		Markdown: func(f rollout.SessionFile) (string, error) { return "## You\n\nhello from " + f.Name, nil },
	}
}

func TestItemsAreRankedAndDescribed(t *testing.T) {
	m := NewModel(testFiles(), testSource())
	items := m.list.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(sessionItem)
	if first.Title() != "1. b.jsonl" {
		t.Fatalf("unexpected title %q", first.Title())
	}
	if !strings.Contains(first.Description(), "2.0 KB") || !strings.Contains(first.Description(), "about b.jsonl") {
		t.Fatalf("unexpected description %q", first.Description())
	}
	if m.selected != "/s/b.jsonl" {
		t.Fatalf("expected first session selected, got %q", m.selected)
	}
}

func TestEnterChoosesSelectedSession(t *testing.T) {
	var model tea.Model = NewModel(testFiles(), testSource())
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	if model.(Model).selected != "/s/a.jsonl" {
		t.Fatalf("down should move to the second session")
	}
	if cmd == nil {
		t.Fatalf("changing selection should schedule a preview render")
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	f, ok := model.(Model).Chosen()
	if !ok || f.Path != "/s/a.jsonl" {
		t.Fatalf("expected a.jsonl chosen, got %+v %v", f, ok)
	}
}

func TestQuitChoosesNothing(t *testing.T) {
	var model tea.Model = NewModel(testFiles(), testSource())
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if _, ok := model.(Model).Chosen(); ok {
		t.Fatalf("quit must not choose a session")
	}
	if model.View() != "" {
		t.Fatalf("quitting model should render nothing")
	}
}

func TestRenderMessagesRespectNonce(t *testing.T) {
	m := NewModel(testFiles(), testSource())
	m.renderNonce = 2

	next, _ := m.Update(renderMsg{path: "/s/b.jsonl", cacheKey: "k1", rendered: "stale", nonce: 1})
	if _, ok := next.(Model).rendered["k1"]; ok {
		t.Fatalf("stale render must be dropped")
	}
	next, _ = m.Update(renderMsg{path: "/s/b.jsonl", cacheKey: "k2", rendered: "fresh", nonce: 2})
	if next.(Model).rendered["k2"] != "fresh" {
		t.Fatalf("current render must be cached")
	}

	next, _ = m.Update(renderMsg{path: "/s/b.jsonl", nonce: 2, err: errors.New("boom")})
	if !strings.Contains(next.(Model).status, "boom") {
		t.Fatalf("render error should surface in status")
	}
}

func TestRenderCmdProducesPreview(t *testing.T) {
	src := testSource()
	f := testFiles()[0]
	msg := renderCmd(src.Markdown, f, "key", 60, 7)().(renderMsg)
	if msg.err != nil || msg.nonce != 7 || msg.path != f.Path {
		t.Fatalf("unexpected msg %+v", msg)
	}
	plain := ansi.Strip(msg.rendered)
	if !strings.Contains(plain, "hello") || !strings.Contains(plain, "b.jsonl") {
		t.Fatalf("expected rendered preview, got %q", msg.rendered)
	}
}
