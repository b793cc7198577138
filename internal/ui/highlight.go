package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// highlightMatches wraps every case-insensitive occurrence of query in
// content. Lines with a match lose their existing styling so the match
// stays visible; other lines are untouched.
func highlightMatches(content, query string, wrap func(string) string) (string, int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return content, 0
	}
	n := utf8.RuneCountInString(query)

	lines := strings.Split(content, "\n")
	total := 0
	for li, line := range lines {
		plain := ansi.Strip(line)

		// Byte offset of every rune, plus the end of the line.
		offs := make([]int, 0, len(plain)+1)
		for pos := range plain {
			offs = append(offs, pos)
		}
		offs = append(offs, len(plain))

		var b strings.Builder
		last, found := 0, 0
		for i := 0; i+n < len(offs); {
			start, end := offs[i], offs[i+n]
			if !strings.EqualFold(plain[start:end], query) {
				i++
				continue
			}
			b.WriteString(plain[last:start])
			b.WriteString(wrap(plain[start:end]))
			last = end
			found++
			i += n
		}
		if found == 0 {
			continue
		}
		b.WriteString(plain[last:])
		lines[li] = b.String()
		total += found
	}
	return strings.Join(lines, "\n"), total
}
