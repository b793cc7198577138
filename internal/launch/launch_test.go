package launch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

func fakeLookPath(found map[string]string) func(string) (string, error) {
	return func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
}

func TestCommandArgs(t *testing.T) {
	l := New("", nil)
	l.LookPath = fakeLookPath(map[string]string{"codex": "/usr/local/bin/codex"})

	cmd, err := l.Command(context.Background(), "")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if len(cmd.Args) != 1 {
		t.Fatalf("empty prompt must launch bare codex, got %#v", cmd.Args)
	}

	cmd, err = l.Command(context.Background(), "hello\nworld")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "hello\nworld" {
		t.Fatalf("prompt must be a single argument, got %#v", cmd.Args)
	}
	if cmd.Stdin != os.Stdin || cmd.Stdout != os.Stdout {
		t.Fatalf("expected inherited stdio")
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	l := New("codex", nil)
	l.LookPath = fakeLookPath(nil)
	if err := l.Launch(context.Background(), "x"); !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestLaunchIgnoresExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	bin := filepath.Join(t.TempDir(), "fake-codex")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	defer devnull.Close()

	l := New(bin, nil)
	l.Stdin, l.Stdout, l.Stderr = devnull, devnull, devnull
	if err := l.Launch(context.Background(), "prompt"); err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
}

func TestSelectClipboard(t *testing.T) {
	tests := []struct {
		name  string
		goos  string
		found map[string]string
		want  string
		args  int
		err   error
	}{
		{name: "darwin", goos: "darwin", found: map[string]string{"pbcopy": "/usr/bin/pbcopy"}, want: "/usr/bin/pbcopy"},
		{name: "linux prefers wl-copy", goos: "linux", found: map[string]string{"wl-copy": "/w", "xclip": "/x"}, want: "/w"},
		{name: "linux falls back to xclip", goos: "linux", found: map[string]string{"xclip": "/x"}, want: "/x", args: 2},
		{name: "linux none", goos: "linux", err: ErrToolNotFound},
		{name: "unknown os", goos: "plan9", found: map[string]string{"pbcopy": "/p"}, err: ErrToolNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := SelectClipboard(tt.goos, fakeLookPath(tt.found))
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Path != tt.want || len(cmd.Args) != tt.args {
				t.Fatalf("unexpected command %#v", cmd)
			}
		})
	}
}
