package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codex-resume/internal/budget"
	"codex-resume/internal/config"
	"codex-resume/internal/index"
	"codex-resume/internal/launch"
	"codex-resume/internal/rollout"
	"codex-resume/internal/transcript"
	"codex-resume/internal/ui"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
)

const listLimit = 10

type resumeOptions struct {
	cfg config.AppConfig

	list       bool
	session    string
	sessionSet bool
	pick       bool
	print      bool
	copy       bool
}

// NewResumeCommand builds the command for one resume variant.
func NewResumeCommand(v Variant, env Env) *cobra.Command {
	var opts resumeOptions
	cmd := newCommand(v.Tool, v.Short, v.Long, env)
	cmd.Example = fmt.Sprintf(`  %[1]s              # resume the last session in this directory
  %[1]s --list       # show sessions with timestamps and sizes
  %[1]s --session 2  # resume the 2nd session from the list
  %[1]s --pick       # choose a session interactively`, v.Tool)

	fs := cmd.Flags()
	opts.cfg.BindFlags(fs)
	fs.BoolVarP(&opts.list, "list", "l", false, "list sessions for the current directory")
	fs.StringVarP(&opts.session, "session", "s", "", "resume session `N` from the list (1 is the latest)")
	fs.BoolVar(&opts.pick, "pick", false, "choose the session interactively")
	fs.BoolVar(&opts.print, "print", false, "write the prompt to stdout instead of starting codex")
	fs.BoolVar(&opts.copy, "copy", false, "copy the prompt to the clipboard instead of starting codex")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		opts.sessionSet = cmd.Flags().Changed("session")
		if opts.print && opts.copy {
			return &usageError{msg: "--print and --copy cannot be combined"}
		}
		if opts.pick && (opts.list || opts.sessionSet) {
			return &usageError{msg: "--pick cannot be combined with --list or --session"}
		}
		return runResume(cmd.Context(), v, env, opts)
	}
	return cmd
}

type resumeRun struct {
	v      Variant
	env    Env
	opts   resumeOptions
	logger *slog.Logger
	file   config.File
	cache  *index.Cache

	// out receives progress messages; with --print it is stderr so the
	// prompt alone reaches stdout.
	out io.Writer
}

func runResume(ctx context.Context, v Variant, env Env, opts resumeOptions) error {
	r := &resumeRun{v: v, env: env, opts: opts, out: env.Stdout}
	if opts.print {
		r.out = env.Stderr
	}

	ordinal := 1
	if opts.sessionSet {
		n, err := rollout.ParseOrdinal(opts.session)
		if err != nil {
			fmt.Fprintf(r.out, "Invalid session number: %s. Use: %s --session <number>\n", opts.session, v.Tool)
			return nil
		}
		ordinal = n
	}

	if err := r.opts.cfg.Resolve(); err != nil {
		return err
	}
	r.logger = config.NewLogger(env.Stderr, r.opts.cfg.Verbose)
	file, err := config.LoadFile(r.opts.cfg.ConfigPath)
	if err != nil {
		r.logger.Warn("ignoring config file", "path", r.opts.cfg.ConfigPath, "err", err)
	}
	r.file = file

	cwd, err := env.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	// An explicit --session may still be rejected as out of range, so it
	// scans files directly and leaves the cache untouched.
	if !r.opts.cfg.NoCache && !opts.sessionSet {
		cache, err := index.Open(r.opts.cfg.DBPath, r.opts.cfg.Reindex, r.logger)
		if err != nil {
			r.logger.Warn("marker cache unavailable, scanning files", "path", r.opts.cfg.DBPath, "err", err)
		} else {
			r.cache = cache
			defer cache.Close()
		}
	}

	if !opts.list {
		fmt.Fprintln(r.out, "Looking for sessions in: "+cwd)
	}
	files, err := r.locate(ctx, cwd)
	if err != nil {
		return err
	}

	if opts.list {
		r.printList(cwd, files)
		return nil
	}

	var chosen rollout.SessionFile
	switch {
	case env.Pinned != "" && !opts.sessionSet && !opts.pick:
		chosen, err = rollout.Select(files, 1, env.Pinned)
		if err != nil {
			r.logger.Warn("pinned session unavailable, using the latest", "path", env.Pinned, "err", err)
			chosen, err = rollout.Select(files, 1, "")
		}
	case opts.pick:
		if len(files) == 0 {
			err = rollout.ErrNoSessions
			break
		}
		chosen, err = env.Pick(ctx, files, r.pickerSource())
		if errors.Is(err, ui.ErrCancelled) {
			fmt.Fprintln(r.out, "No session selected.")
			return nil
		}
	default:
		chosen, err = rollout.Select(files, ordinal, "")
	}

	var rangeErr *rollout.RangeError
	switch {
	case errors.Is(err, rollout.ErrNoSessions):
		if opts.sessionSet {
			fmt.Fprintln(r.out, "No sessions found for "+cwd)
			return nil
		}
		fmt.Fprintln(r.out, "No previous sessions found for this directory.")
		fmt.Fprintln(r.out, "Starting fresh codex...")
		return r.deliver(ctx, "")
	case errors.As(err, &rangeErr):
		fmt.Fprintf(r.out, "Invalid session number. Available: 1-%d\n", rangeErr.Count)
		return nil
	case err != nil:
		return err
	}

	if opts.sessionSet || opts.pick {
		fmt.Fprintln(r.out, "Resuming session: "+chosen.Name)
	} else {
		r.printSummary(files, chosen)
	}
	return r.resume(ctx, chosen)
}

func (r *resumeRun) locate(ctx context.Context, cwd string) ([]rollout.SessionFile, error) {
	root := r.opts.cfg.SessionsDir()
	var matcher rollout.Matcher = rollout.ScanMatcher
	if r.cache != nil {
		matcher = r.cache
	}
	files, err := rollout.Locate(root, cwd, matcher)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		all, err := rollout.Discover(root)
		if err == nil {
			err = r.cache.Prune(ctx, all)
		}
		if err != nil {
			r.logger.Warn("marker cache prune failed", "err", err)
		}
		hits, misses := r.cache.Stats()
		r.logger.Debug("located sessions", "dir", cwd, "matched", len(files), "cache_hits", hits, "cache_misses", misses)
	}
	return files, nil
}

func (r *resumeRun) printList(cwd string, files []rollout.SessionFile) {
	if len(files) == 0 {
		fmt.Fprintln(r.out, "No sessions found for "+cwd)
		return
	}
	fmt.Fprintln(r.out, headerStyle.Render("Sessions for "+cwd+":"))
	if len(files) > listLimit {
		files = files[:listLimit]
	}
	for i, f := range files {
		fmt.Fprintf(r.out, "%d. %s\n", i+1, ansi.Truncate(f.Name, 72, "..."))
		meta := fmt.Sprintf("Modified: %s | Size: %.2f MB", f.ModTime.Local().Format(timeLayout), float64(f.Size)/(1024*1024))
		if started, ok := rollout.StampTime(f.Name); ok {
			meta = "Started: " + started.Format(timeLayout) + " | " + meta
		}
		fmt.Fprintln(r.out, dimStyle.Render("   "+meta))
	}
	fmt.Fprintf(r.out, "\nTo resume a specific session, use: %s --session <number>\n", r.v.Tool)
}

func (r *resumeRun) printSummary(files []rollout.SessionFile, chosen rollout.SessionFile) {
	fmt.Fprintln(r.out, "\nAll sessions for this directory (most recent first):")
	for i, f := range files {
		if i == 3 {
			break
		}
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, f.Name)
	}
	fmt.Fprintf(r.out, "Found %d session(s) for this directory\n", len(files))
	fmt.Fprintln(r.out, "Latest: "+chosen.Name)
	fmt.Fprintf(r.out, "File size: %d bytes\n", chosen.Size)
	fmt.Fprintln(r.out, "Modified: "+chosen.ModTime.Local().Format(timeLayout))
}

func (r *resumeRun) rules() []transcript.Rule {
	return transcript.WithExtraPhrases(transcript.DefaultRules,
		r.file.ExtraDropPhrases.User, r.file.ExtraDropPhrases.Assistant)
}

func (r *resumeRun) resume(ctx context.Context, chosen rollout.SessionFile) error {
	t, err := transcript.New(r.v.Mode, r.rules()).ExtractFile(chosen.Path)
	if err != nil {
		return fmt.Errorf("read session %s: %w", chosen.Name, err)
	}
	if !hasConversation(t) {
		fmt.Fprintln(r.out, "No real conversation found. Starting fresh...")
		return r.deliver(ctx, "")
	}
	fmt.Fprintf(r.out, "Found %d entries\n", len(t.Entries))

	maxChars := r.file.MaxCharsFor(r.v.Mode.Name, r.v.MaxChars)
	res, err := budget.Assemble(r.v.Layout, t, r.v.Policy(maxChars, r.opts.cfg.CodexHome))
	if err != nil {
		return fmt.Errorf("assemble context: %w", err)
	}

	switch {
	case res.Overflowed:
		fmt.Fprintf(r.out, "Full history is %d characters (~%d tokens, %d lines).\n", res.Chars, res.Chars/4, res.Lines)
		fmt.Fprintf(r.out, "Saved to %s; codex will read it in %d chunks of %d lines.\n", res.SidePath, res.Chunks, chunkLines)
	case res.Trimmed:
		fmt.Fprintln(r.out, warnStyle.Render(fmt.Sprintf("Kept the last %d of %d entries to fit %d characters.", res.Kept, res.Kept+res.Dropped, maxChars)))
	default:
		fmt.Fprintf(r.out, "Loading session: %d entries (~%d tokens)\n", res.Kept, budget.Chars(res.Text)/4)
	}
	r.logger.Debug("assembled context", "variant", r.v.Mode.Name, "chars", budget.Chars(res.Text), "kept", res.Kept, "dropped", res.Dropped)

	return r.deliver(ctx, res.Text)
}

func hasConversation(t transcript.Transcript) bool {
	for _, e := range t.Entries {
		if e.Kind == transcript.KindUser || e.Kind == transcript.KindAssistant {
			return true
		}
	}
	return false
}

// deliver hands the prompt to codex, stdout or the clipboard. An empty prompt
// starts a fresh codex session.
func (r *resumeRun) deliver(ctx context.Context, prompt string) error {
	switch {
	case r.opts.print:
		if prompt != "" {
			fmt.Fprintln(r.env.Stdout, prompt)
		}
		return nil
	case r.opts.copy:
		if prompt == "" {
			fmt.Fprintln(r.out, "Nothing to copy.")
			return nil
		}
		if err := r.env.Copy(ctx, prompt); err != nil {
			if errors.Is(err, launch.ErrToolNotFound) {
				fmt.Fprintln(r.out, "Could not copy: clipboard tool not found")
				return nil
			}
			return fmt.Errorf("copy prompt: %w", err)
		}
		fmt.Fprintf(r.out, "Copied %d characters to the clipboard.\n", budget.Chars(prompt))
		return nil
	}

	if prompt != "" {
		fmt.Fprintln(r.out, "\nStarting codex with previous context...")
		fmt.Fprintln(r.out, "(Context loaded - codex will wait for your instruction)")
	}
	l := r.env.NewLauncher(r.file.Binary, r.logger)
	if err := l.Launch(ctx, prompt); err != nil {
		return err
	}
	return nil
}

func (r *resumeRun) pickerSource() ui.Source {
	preview := func(path string) string {
		t, err := transcript.New(transcript.Preview, r.rules()).ExtractFile(path)
		if err != nil {
			return ""
		}
		return ansi.Truncate(transcript.FirstUser(t), 60, "...")
	}
	return ui.Source{
		Describe: func(f rollout.SessionFile) string {
			if r.cache != nil {
				return r.cache.Preview(f, preview)
			}
			return preview(f.Path)
		},
		Markdown: func(f rollout.SessionFile) (string, error) {
			t, err := transcript.New(transcript.Preview, r.rules()).ExtractFile(f.Path)
			if err != nil {
				return "", err
			}
			if len(t.Entries) == 0 {
				return "_No conversation in this session._", nil
			}
			return transcript.SessionMarkdown(f.Name, f.Size, f.ModTime.Local().Format(timeLayout), t), nil
		},
	}
}
