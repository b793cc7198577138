package transcript

import (
	"regexp"
	"strings"
)

type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchContains
)

// Rule drops a message whose text matches Phrase for the given role.
//
// The phrase lists below are allowlists of text Codex or this tool family
// injects on its own. They are inherently incomplete: an auto-generated phrase
// that is not listed here will show up in the transcript as if a person had
// written it. Extend the list (or the config file's extra_drop_phrases) when a
// new one is spotted rather than loosening the match kinds.
type Rule struct {
	Role   string
	Match  MatchKind
	Phrase string
}

func (r Rule) matches(text string) bool {
	switch r.Match {
	case MatchExact:
		return strings.TrimSpace(text) == r.Phrase
	case MatchPrefix:
		return strings.HasPrefix(strings.TrimSpace(text), r.Phrase)
	case MatchContains:
		return strings.Contains(text, r.Phrase)
	}
	return false
}

// InstructionPlaceholder replaces the first project-instruction block of a
// session.
const InstructionPlaceholder = "[Project configuration loaded]"

var DefaultRules = []Rule{
	// Codex preamble messages.
	{Role: "user", Match: MatchPrefix, Phrase: "<environment_context"},
	{Role: "user", Match: MatchPrefix, Phrase: "<turn_aborted>"},
	{Role: "user", Match: MatchPrefix, Phrase: "<permissions"},

	// Banners that stand in for project configuration.
	{Role: "user", Match: MatchExact, Phrase: "[Project configuration and guidelines loaded]"},
	{Role: "user", Match: MatchExact, Phrase: "[Project instructions provided]"},
	{Role: "user", Match: MatchExact, Phrase: InstructionPlaceholder},

	// Context this tool family injected into an earlier resume. Matched by
	// containment so a resumed session never nests its own prior context.
	{Role: "user", Match: MatchContains, Phrase: "=== CONTEXT FROM PREVIOUS SESSION ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== PREVIOUS SESSION CONTEXT ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== CONTINUING FROM PREVIOUS SESSION ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== END OF CONTEXT ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== RESUMING PREVIOUS SESSION ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== FULL SESSION HISTORY ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== SESSION CONTEXT ==="},
	{Role: "user", Match: MatchContains, Phrase: "=== RECENT SESSION CONTEXT (TRIMMED) ==="},
	{Role: "user", Match: MatchContains, Phrase: "MANDATORY: Use Read tool to load session context"},

	// Acknowledgements Codex gives to a resumed context.
	{Role: "assistant", Match: MatchExact, Phrase: "I've got the project context loaded"},
	{Role: "assistant", Match: MatchExact, Phrase: "Ready to continue. What should I tackle next?"},
	{Role: "assistant", Match: MatchExact, Phrase: "Great—what do you want to enable"},
	{Role: "assistant", Match: MatchExact, Phrase: "I'll start by scanning"},
	{Role: "assistant", Match: MatchExact, Phrase: "Got it — I've reviewed the context"},
	{Role: "assistant", Match: MatchExact, Phrase: "Read tool not available, please enable it."},
}

// WithExtraPhrases returns base plus exact-match rules for the given phrases.
func WithExtraPhrases(base []Rule, user, assistant []string) []Rule {
	out := make([]Rule, 0, len(base)+len(user)+len(assistant))
	out = append(out, base...)
	for _, p := range user {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Rule{Role: "user", Match: MatchExact, Phrase: p})
		}
	}
	for _, p := range assistant {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Rule{Role: "assistant", Match: MatchExact, Phrase: p})
		}
	}
	return out
}

func dropped(rules []Rule, role, text string) bool {
	for _, r := range rules {
		if r.Role == role && r.matches(text) {
			return true
		}
	}
	return false
}

var agentsHeadingRe = regexp.MustCompile(`(?im)^[\s#>*` + "`" + `-]*agents\.md instructions for\b`)

// isInstructionBlock reports whether a user message carries project
// instructions: the legacy <user_instructions> block, or the AGENTS.md
// preamble newer Codex builds send.
func isInstructionBlock(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "<user_instructions>") || strings.Contains(lower, "<instructions>") {
		return true
	}
	return agentsHeadingRe.MatchString(text)
}
