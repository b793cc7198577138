package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type ClipboardCommand struct {
	Path string
	Args []string
}

type clipTool struct {
	name string
	args []string
}

// Clipboard tools by platform, in order of preference.
var clipTools = map[string][]clipTool{
	"darwin":  {{name: "pbcopy"}},
	"linux":   {{name: "wl-copy"}, {name: "xclip", args: []string{"-selection", "clipboard"}}, {name: "xsel", args: []string{"--clipboard", "--input"}}},
	"windows": {{name: "clip"}},
}

func SelectClipboard(goos string, lookPath func(string) (string, error)) (ClipboardCommand, error) {
	for _, tool := range clipTools[goos] {
		if path, err := lookPath(tool.name); err == nil {
			return ClipboardCommand{Path: path, Args: tool.args}, nil
		}
	}
	return ClipboardCommand{}, ErrToolNotFound
}

// Copy pipes text into the platform clipboard tool.
func Copy(ctx context.Context, text string) error {
	def, err := SelectClipboard(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	return def.Run(ctx, text)
}

func (c ClipboardCommand) Run(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("clipboard command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
