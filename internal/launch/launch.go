package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ErrBinaryNotFound is returned when the codex executable is not on PATH.
var ErrBinaryNotFound = errors.New("codex binary not found")

// Launcher starts the interactive codex CLI.
type Launcher struct {
	Binary   string
	LookPath func(string) (string, error)

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Logger *slog.Logger
}

func New(binary string, logger *slog.Logger) *Launcher {
	if binary == "" {
		binary = "codex"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		Binary:   binary,
		LookPath: exec.LookPath,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   logger,
	}
}

// Command builds the codex invocation. An empty prompt starts a fresh session.
func (l *Launcher) Command(ctx context.Context, prompt string) (*exec.Cmd, error) {
	path, err := l.LookPath(l.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, l.Binary)
	}
	var args []string
	if prompt != "" {
		args = []string{prompt}
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return cmd, nil
}

// Launch runs codex in the foreground and blocks until it exits. The child's
// exit status is not inspected.
func (l *Launcher) Launch(ctx context.Context, prompt string) error {
	cmd, err := l.Command(ctx, prompt)
	if err != nil {
		return err
	}
	l.Logger.Debug("launching codex", "path", cmd.Path, "prompt_chars", len([]rune(prompt)))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			l.Logger.Debug("codex exited", "code", exitErr.ExitCode())
			return nil
		}
		return fmt.Errorf("run codex: %w", err)
	}
	return nil
}
