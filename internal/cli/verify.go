package cli

import (
	"errors"
	"fmt"

	"codex-resume/internal/config"
	"codex-resume/internal/contextfile"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NewVerifyCommand reports on the side file written by codex-resume-full.
func NewVerifyCommand(env Env) *cobra.Command {
	var (
		cfg   config.AppConfig
		path  string
		lines int
	)
	cmd := newCommand("codex-verify-context",
		"Check the context file written by codex-resume-full",
		`Reports the size of $CODEX_HOME/last-context.txt, whether it carries the
markers of a complete history, and how many messages, tool calls and outputs
it holds.`, env)

	fs := cmd.Flags()
	cfg.BindHomeFlags(fs)
	fs.StringVar(&path, "file", "", "context file to check (default $CODEX_HOME/last-context.txt)")
	fs.IntVar(&lines, "chunk-lines", chunkLines, "lines per Read chunk")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Resolve(); err != nil {
			return err
		}
		f := contextfile.New(cfg.CodexHome)
		if path != "" {
			f = contextfile.At(path)
		}

		st, err := f.Inspect()
		out := env.Stdout
		if errors.Is(err, contextfile.ErrMissing) {
			fmt.Fprintf(out, "❌ No context file found at %s\n", f.Path())
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(out, headerStyle.Render("📊 Context File Stats:"))
		fmt.Fprintf(out, "  • File: %s\n", st.Path)
		fmt.Fprintf(out, "  • Written: %s\n", st.ModTime.Local().Format(timeLayout))
		fmt.Fprintf(out, "  • Size: %s characters\n", thousands(st.Chars))
		fmt.Fprintf(out, "  • Lines: %s\n", thousands(st.Lines))
		fmt.Fprintf(out, "  • Estimated tokens: %s\n", thousands(st.Tokens))
		fmt.Fprintf(out, "  • Read chunks of %d lines: %d\n", lines, st.Chunks(lines))

		fmt.Fprintln(out, "\n"+headerStyle.Render("✅ Content Verification:"))
		fmt.Fprintf(out, "  • Has session start: %s\n", mark(st.HasStart))
		fmt.Fprintf(out, "  • Has session end: %s\n", mark(st.HasEnd))
		fmt.Fprintf(out, "  • Has tool calls: %s\n", mark(st.HasTools))
		fmt.Fprintf(out, "  • Has tool outputs: %s\n", mark(st.HasOutputs))

		fmt.Fprintln(out, "\n"+headerStyle.Render("📈 Record Counts:"))
		fmt.Fprintf(out, "  • User messages: %d\n", st.UserMessages)
		fmt.Fprintf(out, "  • Assistant messages: %d\n", st.AssistantMessages)
		fmt.Fprintf(out, "  • Tool calls: %d\n", st.ToolCalls)
		fmt.Fprintf(out, "  • Tool outputs: %d\n", st.ToolOutputs)

		if st.Small() {
			fmt.Fprintln(out, "\n"+warnStyle.Render(fmt.Sprintf("⚠️  WARNING: Context seems small (%s tokens)", thousands(st.Tokens))))
			fmt.Fprintln(out, "     Expected 50K-250K+ tokens for full context")
			fmt.Fprintln(out, "     You might be missing content!")
		} else {
			fmt.Fprintf(out, "\n✅ Context size looks good (%s tokens)\n", thousands(st.Tokens))
		}
		return nil
	}
	return cmd
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

var numbers = message.NewPrinter(language.English)

func thousands(n int) string {
	return numbers.Sprintf("%d", n)
}
