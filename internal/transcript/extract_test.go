package transcript

import (
	"iter"
	"strconv"
	"strings"
	"testing"

	"codex-resume/internal/rollout"
)

func seq(recs ...rollout.Record) iter.Seq2[rollout.Record, error] {
	return func(yield func(rollout.Record, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func user(text string) rollout.Record {
	return rollout.Record{Type: rollout.RecordMessage, Role: "user", Content: []rollout.ContentItem{{Kind: rollout.ContentInputText, Text: text}}}
}

func assistant(text string) rollout.Record {
	return rollout.Record{Type: rollout.RecordMessage, Role: "assistant", Content: []rollout.ContentItem{{Kind: rollout.ContentOutputText, Text: text}}}
}

func kinds(t Transcript) []Kind {
	out := make([]Kind, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e.Kind)
	}
	return out
}

func TestExtract_DropsBannerPhrasesInEveryMode(t *testing.T) {
	banners := []string{
		"[Project configuration and guidelines loaded]",
		"[Project instructions provided]",
		"  [Project configuration loaded]  ",
	}
	for _, mode := range []Mode{Light, Full, Chunked, Direct, Preview} {
		for _, b := range banners {
			tr, err := New(mode, nil).Extract(seq(user(b), user("real question")))
			if err != nil {
				t.Fatalf("%s: extract: %v", mode.Name, err)
			}
			for _, e := range tr.Entries {
				if e.Kind == KindUser && strings.TrimSpace(e.Text) == strings.TrimSpace(b) {
					t.Fatalf("%s: banner %q leaked into transcript", mode.Name, b)
				}
			}
			if len(tr.Entries) != 1 || tr.Entries[0].Text != "real question" {
				t.Fatalf("%s: unexpected entries %#v", mode.Name, tr.Entries)
			}
		}
	}
}

func TestExtract_DropsEnvironmentContextAndPriorResume(t *testing.T) {
	tr, err := New(Light, nil).Extract(seq(
		user("<environment_context>\n<cwd>/tmp/app</cwd>\n</environment_context>"),
		user("🔴 IMPORTANT\n=== CONTEXT FROM PREVIOUS SESSION ===\nold stuff"),
		user("fix the tests"),
		assistant("Ready to continue. What should I tackle next?"),
		assistant("Done, tests pass."),
	))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(tr.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %#v", tr.Entries)
	}
	if tr.Entries[0].Text != "fix the tests" || tr.Entries[1].Text != "Done, tests pass." {
		t.Fatalf("unexpected entries %#v", tr.Entries)
	}
}

func TestExtract_AssistantPhraseMustMatchExactly(t *testing.T) {
	tr, _ := New(Light, nil).Extract(seq(assistant("Ready to continue. What should I tackle next? First, the parser.")))
	if len(tr.Entries) != 1 {
		t.Fatalf("partial match must not drop a real reply, got %#v", tr.Entries)
	}
}

func TestExtract_CollapsesInstructionBlocks(t *testing.T) {
	tr, err := New(Full, nil).Extract(seq(
		user("<user_instructions>\nbe terse\n</user_instructions>"),
		user("first task"),
		user("<user_instructions>\nbe terse again\n</user_instructions>"),
	))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !tr.SeenInstructions {
		t.Fatalf("expected instructions flag")
	}
	n := 0
	for _, e := range tr.Entries {
		if e.Kind == KindInstruction {
			n++
			if e.Text != InstructionPlaceholder {
				t.Fatalf("unexpected placeholder text %q", e.Text)
			}
		}
	}
	if n != 1 {
		t.Fatalf("expected exactly one placeholder, got %d (%#v)", n, tr.Entries)
	}
}

func TestExtract_AgentsHeadingIsInstruction(t *testing.T) {
	tr, _ := New(Light, nil).Extract(seq(user("# AGENTS.md instructions for /repo\n\n<INSTRUCTIONS>\nx\n</INSTRUCTIONS>")))
	if !tr.SeenInstructions || len(tr.Entries) != 1 || tr.Entries[0].Kind != KindInstruction {
		t.Fatalf("expected AGENTS preamble collapsed, got %#v", tr)
	}
}

func TestExtract_ToolsAndReasoning(t *testing.T) {
	long := strings.Repeat("x", 150)
	tr, err := New(Full, nil).Extract(seq(
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "bash", Params: map[string]any{"command": long}},
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "edit_file", Params: map[string]any{"file_path": "main.go"}},
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "shell", Params: map[string]any{"command": []any{"go", "test"}}},
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "web_search"},
		rollout.Record{Type: rollout.RecordFunctionCallOutput, Output: "\x1b[32mok\x1b[0m " + long},
		rollout.Record{Type: rollout.RecordReasoning, Summary: "check the parser"},
		rollout.Record{Type: rollout.RecordReasoning},
	))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []string{
		"[TOOL: bash] " + strings.Repeat("x", 100) + "...",
		"[TOOL: edit] main.go",
		"[TOOL: shell] go test...",
		"[TOOL: web_search]",
		"ok " + long,
		"[THINKING] check the parser",
	}
	if len(tr.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %#v", len(want), len(tr.Entries), tr.Entries)
	}
	for i, w := range want {
		if tr.Entries[i].Text != w {
			t.Fatalf("entry %d: got %q want %q", i, tr.Entries[i].Text, w)
		}
	}
}

func TestExtract_ModeCapsOnlyDisplayText(t *testing.T) {
	long := strings.Repeat("é", 1200)
	rec := user(long)
	tr, _ := New(Chunked, nil).Extract(seq(rec))
	if got := len([]rune(tr.Entries[0].Text)); got != 1000 {
		t.Fatalf("expected 1000-rune cap, got %d", got)
	}
	if rec.Content[0].Text != long {
		t.Fatalf("record text must not be modified")
	}

	tr, _ = New(Light, nil).Extract(seq(rec))
	if tr.Entries[0].Text != long {
		t.Fatalf("light mode must keep full user text")
	}
}

func TestExtract_ChunkedKeepsLastEntries(t *testing.T) {
	recs := make([]rollout.Record, 0, 60)
	for i := 0; i < 60; i++ {
		recs = append(recs, user(strings.Repeat("q", i+1)))
	}
	tr, _ := New(Chunked, nil).Extract(seq(recs...))
	if len(tr.Entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(tr.Entries))
	}
	if len(tr.Entries[0].Text) != 11 {
		t.Fatalf("expected oldest kept entry to be #11, got len %d", len(tr.Entries[0].Text))
	}
}

func TestExtract_DirectCountsToolUsageWithoutEntries(t *testing.T) {
	tr, _ := New(Direct, nil).Extract(seq(
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "bash"},
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "shell"},
		rollout.Record{Type: rollout.RecordFunctionCall, Name: "fetch"},
		user("<custom>tagged</custom>"),
	))
	if len(tr.Entries) != 0 {
		t.Fatalf("direct mode should not emit tool or tagged entries: %#v", tr.Entries)
	}
	got := kindsOfUsage(tr.ToolUsage)
	if got != "bash=2 other=1" {
		t.Fatalf("unexpected usage %q", got)
	}
}

func kindsOfUsage(c []ToolCount) string {
	parts := make([]string, 0, len(c))
	for _, tc := range c {
		parts = append(parts, tc.Bucket+"="+strconv.Itoa(tc.Calls))
	}
	return strings.Join(parts, " ")
}

func TestWithExtraPhrases(t *testing.T) {
	rules := WithExtraPhrases(DefaultRules, []string{"ping"}, []string{"pong"})
	tr, _ := New(Light, rules).Extract(seq(user("ping"), assistant("pong"), user("keep")))
	if got := kinds(tr); len(got) != 1 || tr.Entries[0].Text != "keep" {
		t.Fatalf("extra phrases not applied: %#v", tr.Entries)
	}
}
