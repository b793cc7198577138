package transcript

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"codex-resume/internal/rollout"

	"github.com/charmbracelet/x/ansi"
)

type Kind string

const (
	KindUser        Kind = "user"
	KindAssistant   Kind = "assistant"
	KindToolCall    Kind = "tool_call"
	KindToolOutput  Kind = "tool_output"
	KindReasoning   Kind = "reasoning"
	KindInstruction Kind = "instruction"
)

type Entry struct {
	Kind Kind
	Text string
}

type ToolCount struct {
	Bucket string
	Calls  int
}

type Transcript struct {
	Entries          []Entry
	SeenInstructions bool
	ToolUsage        []ToolCount
}

// Extractor turns session records into transcript entries.
type Extractor struct {
	Mode  Mode
	Rules []Rule
}

func New(mode Mode, rules []Rule) Extractor {
	if rules == nil {
		rules = DefaultRules
	}
	return Extractor{Mode: mode, Rules: rules}
}

// ExtractFile reads path and extracts its transcript.
func (x Extractor) ExtractFile(path string) (Transcript, error) {
	return x.Extract(rollout.Records(path))
}

// Extract classifies records in order. Meta messages are removed here, before
// any budgeting sees them.
func (x Extractor) Extract(records iter.Seq2[rollout.Record, error]) (Transcript, error) {
	var t Transcript
	usage := newToolUsage()

	for rec, err := range records {
		if err != nil {
			return t, err
		}
		switch rec.Type {
		case rollout.RecordMessage:
			x.addMessage(&t, rec)
		case rollout.RecordFunctionCall:
			usage.add(rec.Name)
			if x.Mode.IncludeTools {
				t.Entries = append(t.Entries, Entry{Kind: KindToolCall, Text: formatToolCall(rec.Name, rec.Params)})
			}
		case rollout.RecordFunctionCallOutput:
			if !x.Mode.IncludeTools || strings.TrimSpace(rec.Output) == "" {
				continue
			}
			out := Truncate(ansi.Strip(rec.Output), x.Mode.toolOutputCap())
			t.Entries = append(t.Entries, Entry{Kind: KindToolOutput, Text: out})
		case rollout.RecordReasoning:
			if !x.Mode.IncludeReasoning || strings.TrimSpace(rec.Summary) == "" {
				continue
			}
			t.Entries = append(t.Entries, Entry{Kind: KindReasoning, Text: "[THINKING] " + rec.Summary})
		}
	}

	if x.Mode.MaxEntries > 0 && len(t.Entries) > x.Mode.MaxEntries {
		t.Entries = t.Entries[len(t.Entries)-x.Mode.MaxEntries:]
	}
	t.ToolUsage = usage.counts()
	return t, nil
}

func (x Extractor) addMessage(t *Transcript, rec rollout.Record) {
	for _, item := range rec.Content {
		text := item.Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch {
		case rec.Role == "user" && item.Kind == rollout.ContentInputText:
			if dropped(x.Rules, "user", text) {
				continue
			}
			if isInstructionBlock(text) {
				if !t.SeenInstructions {
					t.SeenInstructions = true
					t.Entries = append(t.Entries, Entry{Kind: KindInstruction, Text: InstructionPlaceholder})
				}
				continue
			}
			if x.Mode.DropTaggedUser && strings.HasPrefix(text, "<") {
				continue
			}
			t.Entries = append(t.Entries, Entry{Kind: KindUser, Text: Truncate(text, x.Mode.MaxUserChars)})
		case rec.Role == "assistant" && item.Kind == rollout.ContentOutputText:
			if dropped(x.Rules, "assistant", text) {
				continue
			}
			t.Entries = append(t.Entries, Entry{Kind: KindAssistant, Text: Truncate(text, x.Mode.MaxAssistantChars)})
		}
	}
}

type toolFormat struct {
	label  string
	param  string
	maxLen int
}

// Tools whose primary parameter is worth showing. A maxLen of 0 shows the
// whole value; a capped value is always followed by "...".
var knownTools = map[string]toolFormat{
	"bash":       {label: "bash", param: "command", maxLen: 100},
	"shell":      {label: "shell", param: "command", maxLen: 100},
	"edit_file":  {label: "edit", param: "file_path"},
	"write_file": {label: "write", param: "file_path"},
}

func formatToolCall(name string, params map[string]any) string {
	f, ok := knownTools[name]
	if !ok {
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("[TOOL: %s]", name)
	}
	value := paramString(params[f.param])
	if f.maxLen > 0 {
		return fmt.Sprintf("[TOOL: %s] %s...", f.label, Truncate(value, f.maxLen))
	}
	return fmt.Sprintf("[TOOL: %s] %s", f.label, value)
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

var toolBuckets = []string{"bash", "edit", "write", "other"}

type toolUsage map[string]int

func newToolUsage() toolUsage { return toolUsage{} }

func (u toolUsage) add(name string) {
	switch name {
	case "bash", "shell":
		u["bash"]++
	case "edit", "edit_file", "apply_patch":
		u["edit"]++
	case "write", "write_file":
		u["write"]++
	default:
		u["other"]++
	}
}

func (u toolUsage) counts() []ToolCount {
	out := make([]ToolCount, 0, len(toolBuckets))
	for _, b := range toolBuckets {
		if n := u[b]; n > 0 {
			out = append(out, ToolCount{Bucket: b, Calls: n})
		}
	}
	return out
}

// Truncate cuts s to at most n runes. n <= 0 leaves s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
