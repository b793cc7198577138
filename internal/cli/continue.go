package cli

import (
	"fmt"
	"strings"

	"codex-resume/internal/config"
	"codex-resume/internal/rollout"
	"codex-resume/internal/transcript"
	"codex-resume/internal/ui"

	"github.com/spf13/cobra"
)

const (
	continueEntries = 5
	continueChars   = 200
	continueWrap    = 100
)

// NewContinueCommand previews the most recent session in any directory
// without starting codex.
func NewContinueCommand(env Env) *cobra.Command {
	var (
		cfg  config.AppConfig
		list bool
		raw  bool
	)
	cmd := newCommand("codex-continue",
		"Preview the most recent Codex session in any directory",
		`Shows the last few messages of the most recent Codex session, whatever
directory it ran in, and how to continue from it. Nothing is launched.`, env)

	fs := cmd.Flags()
	cfg.BindHomeFlags(fs)
	fs.BoolVarP(&list, "list", "l", false, "list the 10 most recent sessions")
	fs.BoolVar(&raw, "raw", false, "print markdown without terminal rendering")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Resolve(); err != nil {
			return err
		}
		logger := config.NewLogger(env.Stderr, cfg.Verbose)
		file, err := config.LoadFile(cfg.ConfigPath)
		if err != nil {
			logger.Warn("ignoring config file", "path", cfg.ConfigPath, "err", err)
		}

		files, err := rollout.Locate(cfg.SessionsDir(), "", nil)
		if err != nil {
			return err
		}
		out := env.Stdout

		if list {
			fmt.Fprintln(out, headerStyle.Render("Recent sessions:"))
			for i, f := range files {
				if i == listLimit {
					break
				}
				fmt.Fprintf(out, "%d. %s - %s\n", i+1, f.Name, f.ModTime.Local().Format(timeLayout))
			}
			return nil
		}

		if len(files) == 0 {
			fmt.Fprintln(out, "No session files found")
			return nil
		}
		latest := files[0]
		fmt.Fprintln(out, "Loading session: "+latest.Name)
		fmt.Fprintln(out, "Modified: "+latest.ModTime.Local().Format(timeLayout))
		fmt.Fprintln(out, strings.Repeat("-", 50))

		rules := transcript.WithExtraPhrases(transcript.DefaultRules, file.ExtraDropPhrases.User, file.ExtraDropPhrases.Assistant)
		t, err := transcript.New(transcript.Preview, rules).ExtractFile(latest.Path)
		if err != nil {
			return fmt.Errorf("read session %s: %w", latest.Name, err)
		}
		if !hasConversation(t) {
			fmt.Fprintln(out, "No messages found in session")
			return nil
		}

		md := "### Recent context\n\n" + transcript.Markdown(recentContext(t))
		if raw {
			fmt.Fprint(out, md)
		} else {
			fmt.Fprint(out, ui.RenderMarkdown(md, continueWrap))
		}

		fmt.Fprintln(out, "\n"+strings.Repeat("=", 50))
		fmt.Fprintln(out, "To continue with this context, use:")
		fmt.Fprintln(out, "codex 'Continue from previous session about: [describe what you were working on]'")
		fmt.Fprintln(out, dimStyle.Render("or resume it in its directory with codex-resume"))
		return nil
	}
	return cmd
}

// recentContext keeps the last few conversational entries, shortened.
func recentContext(t transcript.Transcript) transcript.Transcript {
	var out transcript.Transcript
	for _, e := range t.Entries {
		if e.Kind != transcript.KindUser && e.Kind != transcript.KindAssistant {
			continue
		}
		if len([]rune(e.Text)) > continueChars {
			e.Text = transcript.Truncate(e.Text, continueChars) + "..."
		}
		out.Entries = append(out.Entries, e)
	}
	if len(out.Entries) > continueEntries {
		out.Entries = out.Entries[len(out.Entries)-continueEntries:]
	}
	return out
}
