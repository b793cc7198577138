package cli

import (
	"codex-resume/internal/budget"
	"codex-resume/internal/contextfile"
	"codex-resume/internal/transcript"
)

// Variant is one resume tool: how much of a session it extracts, how the
// prompt is framed and how it is kept within budget.
type Variant struct {
	Tool  string
	Short string
	Long  string

	Mode   transcript.Mode
	Layout budget.Layout

	// MaxChars is the trim budget, or the overflow threshold for Full. The
	// config file's max_chars.<mode> overrides it.
	MaxChars int
	policy   func(maxChars int, codexHome string) budget.Policy
}

func (v Variant) Policy(maxChars int, codexHome string) budget.Policy {
	return v.policy(maxChars, codexHome)
}

func trimPolicy(maxChars int, _ string) budget.Policy {
	return budget.TrimToFit{MaxChars: maxChars}
}

const chunkLines = 250

var (
	Light = Variant{
		Tool:  "codex-resume",
		Short: "Resume the latest Codex session for this directory",
		Long: `Loads the previous Codex conversation for the current directory and starts
codex with it as context. Only user and assistant messages are loaded, trimmed
from the oldest end to about 8K tokens, followed by a reminder of the last
exchange. Codex is told to wait for your next instruction.`,
		Mode:     transcript.Light,
		Layout:   budget.LightLayout,
		MaxChars: 32000,
		policy:   trimPolicy,
	}

	Full = Variant{
		Tool:  "codex-resume-full",
		Short: "Resume with the complete session history, tools included",
		Long: `Loads the complete previous session: messages, tool calls, tool outputs and
reasoning. When the history is larger than the threshold it is written to
$CODEX_HOME/last-context.txt and codex is asked to read it back in chunks with
its Read tool. Check the file with codex-verify-context.`,
		Mode:     transcript.Full,
		Layout:   budget.FullLayout,
		MaxChars: 100000,
		policy: func(maxChars int, codexHome string) budget.Policy {
			return budget.Overflow{Threshold: maxChars, ChunkLines: chunkLines, Store: contextfile.New(codexHome)}
		},
	}

	Chunked = Variant{
		Tool:  "codex-resume-chunked",
		Short: "Resume with a summary of the last 50 messages",
		Long: `Loads the last 50 user and assistant messages, each capped, as a short
summary. If that still does not fit, only the last 20 messages are kept,
capped at 500 characters each.`,
		Mode:     transcript.Chunked,
		Layout:   budget.ChunkedLayout,
		MaxChars: 50000,
		policy: func(maxChars int, _ string) budget.Policy {
			return budget.TrimToFit{MaxChars: maxChars, Tail: 20, TailCap: 500, TailLayout: &budget.ChunkedTrimmedLayout}
		},
	}

	Direct = Variant{
		Tool:  "codex-resume-direct",
		Short: "Resume with the conversation and a tool usage summary",
		Long: `Loads user and assistant messages inline together with a count of the tools
used in the session, trimmed from the oldest end to fit.`,
		Mode:     transcript.Direct,
		Layout:   budget.DirectLayout,
		MaxChars: 80000,
		policy:   trimPolicy,
	}
)
