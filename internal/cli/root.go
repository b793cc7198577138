package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"codex-resume/internal/config"
	"codex-resume/internal/launch"
	"codex-resume/internal/rollout"
	"codex-resume/internal/ui"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Launcher runs codex with a prompt.
type Launcher interface {
	Launch(ctx context.Context, prompt string) error
}

// Env carries the process boundary so commands can run in tests.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Getwd  func() (string, error)

	// Pinned is the session path taken from CODEX_SELECTED_SESSION.
	Pinned string

	NewLauncher func(binary string, logger *slog.Logger) Launcher
	Copy        func(ctx context.Context, text string) error
	Pick        func(ctx context.Context, files []rollout.SessionFile, src ui.Source) (rollout.SessionFile, error)
}

// DefaultEnv wires the real process. It consumes CODEX_SELECTED_SESSION.
func DefaultEnv() Env {
	return Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getwd:  os.Getwd,
		Pinned: config.ConsumeSelectedSession(),
		NewLauncher: func(binary string, logger *slog.Logger) Launcher {
			return launch.New(binary, logger)
		},
		Copy: launch.Copy,
		Pick: ui.Pick,
	}
}

// Main runs the command built by build and exits.
func Main(build func(Env) *cobra.Command) {
	env := DefaultEnv()
	os.Exit(Execute(context.Background(), build(env), env))
}

type unknownOptionError struct {
	option string
}

func (e *unknownOptionError) Error() string { return "unknown option: " + e.option }

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// Execute runs cmd and maps its outcome to an exit code. Handled conditions,
// including bad flags, exit 0.
func Execute(ctx context.Context, cmd *cobra.Command, env Env) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var unknown *unknownOptionError
	var usage *usageError
	switch {
	case errors.As(err, &unknown):
		fmt.Fprintf(env.Stdout, "Unknown option: %s. Use --help for usage.\n", unknown.option)
		return 0
	case errors.As(err, &usage):
		fmt.Fprintf(env.Stdout, "%s. Use --help for usage.\n", usage.msg)
		return 0
	}
	fmt.Fprintln(env.Stderr, errorStyle.Render("Error: "+err.Error()))
	return 1
}

// newCommand applies the settings every tool shares.
func newCommand(use, short, long string, env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &unknownOptionError{option: args[0]}
			}
			return nil
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	cmd.SetFlagErrorFunc(flagError)
	return cmd
}

func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag: "):
		return &unknownOptionError{option: strings.TrimPrefix(msg, "unknown flag: ")}
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if i := strings.LastIndex(msg, " in "); i >= 0 {
			return &unknownOptionError{option: msg[i+len(" in "):]}
		}
	}
	return &usageError{msg: msg}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const timeLayout = "2006-01-02 15:04:05"
