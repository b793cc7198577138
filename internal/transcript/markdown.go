package transcript

import (
	"fmt"
	"strings"
)

// Markdown renders t as a readable document, one section per entry.
func Markdown(t Transcript) string {
	var b strings.Builder
	for _, e := range t.Entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		switch e.Kind {
		case KindUser:
			b.WriteString("## You\n\n" + text + "\n\n")
		case KindAssistant:
			b.WriteString("## Codex\n\n" + text + "\n\n")
		case KindInstruction:
			b.WriteString("_" + text + "_\n\n")
		case KindReasoning:
			b.WriteString("> " + strings.ReplaceAll(text, "\n", "\n> ") + "\n\n")
		default:
			title := "## Tool"
			if e.Kind == KindToolOutput {
				title = "## Tool (output)"
			}
			f := fence(text)
			b.WriteString(title + "\n\n" + f + "text\n" + text + "\n" + f + "\n\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// fence returns a backtick fence longer than any backtick run in text.
func fence(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return strings.Repeat("`", max(3, longest+1))
}

// SessionMarkdown prefixes the transcript with a short header about the file.
func SessionMarkdown(name string, size int64, modified string, t Transcript) string {
	var b strings.Builder
	b.WriteString("# " + name + "\n\n")
	b.WriteString("```text\n")
	b.WriteString(fmt.Sprintf("modified: %s\n", modified))
	b.WriteString(fmt.Sprintf("size: %d bytes\n", size))
	b.WriteString(fmt.Sprintf("entries: %d\n", len(t.Entries)))
	b.WriteString("```\n\n")
	b.WriteString(Markdown(t))
	return b.String()
}

// FirstUser returns the first user message, for one-line previews.
func FirstUser(t Transcript) string {
	for _, e := range t.Entries {
		if e.Kind == KindUser {
			return strings.Join(strings.Fields(e.Text), " ")
		}
	}
	return ""
}
