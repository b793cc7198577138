package budget

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"codex-resume/internal/transcript"
)

// Layout describes how a transcript is framed into a prompt. Entry kinds
// without a label are not rendered.
type Layout struct {
	Banner    []string
	Labels    map[transcript.Kind]string
	Separator string
	Footer    []string
	Trailer   []string

	// ToolSummary lists per-tool call counts after the banner, followed by
	// ConversationHeading.
	ToolSummary         bool
	ConversationHeading string

	// LastExchange repeats the final user and assistant turns after the
	// footer, each capped at ReminderChars.
	LastExchange  bool
	ReminderChars int
}

// Document is a transcript rendered through a Layout but not yet fitted to a
// budget. The head and tail frame every assembled prompt.
type Document struct {
	layout  Layout
	source  transcript.Transcript
	head    string
	tail    string
	entries []string
}

func Frame(layout Layout, t transcript.Transcript) Document {
	d := Document{layout: layout, source: t}

	head := append([]string{}, layout.Banner...)
	if layout.ToolSummary {
		head = append(head, "📊 Tool Usage Summary:")
		for _, tc := range t.ToolUsage {
			head = append(head, fmt.Sprintf("  • %s: %d calls", tc.Bucket, tc.Calls))
		}
		head = append(head, "")
		if layout.ConversationHeading != "" {
			head = append(head, layout.ConversationHeading)
		}
	}
	d.head = strings.Join(head, "\n")

	tail := append([]string{}, layout.Footer...)
	if layout.LastExchange {
		tail = append(tail, lastExchange(t.Entries, layout.ReminderChars)...)
	}
	tail = append(tail, layout.Trailer...)
	d.tail = strings.Join(tail, "\n")

	d.entries = renderEntries(layout, t.Entries)
	return d
}

func renderEntries(layout Layout, entries []transcript.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		label, ok := layout.Labels[e.Kind]
		if !ok {
			continue
		}
		out = append(out, label+e.Text)
	}
	return out
}

func lastExchange(entries []transcript.Entry, limit int) []string {
	var lastUser, lastAssistant string
	for i := len(entries) - 1; i >= 0 && (lastUser == "" || lastAssistant == ""); i-- {
		switch entries[i].Kind {
		case transcript.KindUser:
			if lastUser == "" {
				lastUser = entries[i].Text
			}
		case transcript.KindAssistant:
			if lastAssistant == "" {
				lastAssistant = entries[i].Text
			}
		}
	}

	lines := []string{"📍 LAST EXCHANGE REMINDER:\n"}
	if lastUser != "" {
		lines = append(lines, "Last User Message: "+ellipsize(lastUser, limit))
	}
	if lastAssistant != "" {
		lines = append(lines, "\nLast Codex Response: "+ellipsize(lastAssistant, limit))
	}
	lines = append(lines, "\n"+strings.Repeat("=", 50))
	return lines
}

func ellipsize(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return transcript.Truncate(s, n) + "..."
}

// Entries reports how many entries the layout renders.
func (d Document) Entries() int { return len(d.entries) }

// Text assembles the full, untrimmed prompt.
func (d Document) Text() string { return d.textFrom(0) }

func (d Document) textFrom(start int) string {
	var b strings.Builder
	b.WriteString(d.head)
	b.WriteString("\n")
	if start < len(d.entries) {
		b.WriteString(strings.Join(d.entries[start:], d.layout.Separator))
		b.WriteString("\n")
	}
	b.WriteString(d.tail)
	return b.String()
}

// Chars counts characters as Unicode code points.
func Chars(s string) int { return utf8.RuneCountInString(s) }

// Lines counts lines, including an unterminated last line.
func Lines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

var LightLayout = Layout{
	Banner: []string{
		"🔴 IMPORTANT: READ THIS FIRST 🔴",
		"The following is ONLY for context from our previous session.",
		"DO NOT execute any commands or take any actions based on this context.",
		"Just acknowledge the context and wait for my next instruction.",
		"",
		"=== CONTEXT FROM PREVIOUS SESSION ===\n",
		"Full session history:",
	},
	Labels: map[transcript.Kind]string{
		transcript.KindUser:      UserLabel,
		transcript.KindAssistant: AssistantLabel,
	},
	Separator:     "\n\n",
	Footer:        []string{"\n=== END OF CONTEXT ===\n"},
	LastExchange:  true,
	ReminderChars: 500,
	Trailer: []string{
		"\n✋ I've loaded the context from our previous session.",
		"What would you like me to do now?",
	},
}

// Markers of the full layout, also used to verify a written side file.
const (
	UserLabel        = "👤 User: "
	AssistantLabel   = "🤖 Codex: "
	FullHistoryStart = "=== FULL SESSION HISTORY ==="
	FullHistoryEnd   = "=== END OF HISTORY ==="
	ToolCallMarker   = "[TOOL:"
	OutputLabel      = "📤 Output: "
)

var FullLayout = Layout{
	Banner: []string{
		"🔴 IMPORTANT: The following is your COMPLETE session history 🔴",
		"This includes all messages, tool calls, outputs, and reasoning.",
		"DO NOT re-execute old commands. Wait for my new instruction.",
		"",
		FullHistoryStart + "\n",
	},
	Labels: map[transcript.Kind]string{
		transcript.KindUser:        UserLabel,
		transcript.KindAssistant:   AssistantLabel,
		transcript.KindToolCall:    "🔧 ",
		transcript.KindToolOutput:  OutputLabel,
		transcript.KindReasoning:   "💭 ",
		transcript.KindInstruction: "📋 ",
	},
	Separator: "\n\n",
	Footer:    []string{"", FullHistoryEnd + "\n"},
	Trailer:   []string{"✋ Full context loaded. What would you like to do next?"},
}

var ChunkedLayout = Layout{
	Banner: []string{
		"=== RESUMING PREVIOUS SESSION ===",
		"Here's a summary of our last conversation:",
		"",
	},
	Labels: map[transcript.Kind]string{
		transcript.KindUser:      "You asked: ",
		transcript.KindAssistant: "    I responded: ",
	},
	Separator: "\n\n",
	Footer:    []string{"", "=== END OF CONTEXT ===", ""},
	Trailer:   []string{"Ready to continue. What would you like to do next?"},
}

var ChunkedTrimmedLayout = Layout{
	Banner: []string{"=== RECENT SESSION CONTEXT (TRIMMED) ==="},
	Labels: map[transcript.Kind]string{
		transcript.KindUser:      "You: ",
		transcript.KindAssistant: "Me: ",
	},
	Separator: "\n",
	Footer:    []string{"\n=== END ==="},
	Trailer:   []string{"Ready to continue. What's next?"},
}

var DirectLayout = Layout{
	Banner:              []string{"=== SESSION CONTEXT ===\n"},
	ToolSummary:         true,
	ConversationHeading: "💬 Conversation History:\n",
	Labels: map[transcript.Kind]string{
		transcript.KindUser:      UserLabel,
		transcript.KindAssistant: AssistantLabel,
	},
	Separator: "\n",
	Footer:    []string{"\n=== END OF CONTEXT ==="},
	Trailer:   []string{"\n✋ Context loaded. What would you like to do next?"},
}
