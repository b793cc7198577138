package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// SelectedSessionEnv pins the session to resume. It is consumed on start-up.
	SelectedSessionEnv = "CODEX_SELECTED_SESSION"
	DebugEnv           = "CODEX_RESUME_DEBUG"

	DefaultGlamourStyle = "dark"
	fileName            = "resume.yaml"
)

type AppConfig struct {
	CodexHome  string
	DBPath     string
	ConfigPath string
	NoCache    bool
	Reindex    bool
	Verbose    bool
}

// BindHomeFlags registers the flags every tool shares.
func (c *AppConfig) BindHomeFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.CodexHome, "codex-home", "", "path to CODEX_HOME (default $CODEX_HOME or ~/.codex)")
	fs.StringVar(&c.ConfigPath, "config", "", "path to resume.yaml (default $CODEX_HOME/resume.yaml)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "log diagnostics to stderr")
}

// BindFlags registers the home flags plus the marker cache flags.
func (c *AppConfig) BindFlags(fs *pflag.FlagSet) {
	c.BindHomeFlags(fs)
	fs.StringVar(&c.DBPath, "db-path", "", "path to the SQLite marker cache")
	fs.BoolVar(&c.NoCache, "no-cache", false, "scan session files without the marker cache")
	fs.BoolVar(&c.Reindex, "reindex", false, "drop the marker cache before scanning")
}

// Resolve fills unset paths with their defaults.
func (c *AppConfig) Resolve() error {
	var err error
	c.CodexHome, err = DetectCodexHome(c.CodexHome)
	if err != nil {
		return err
	}
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		c.DBPath = filepath.Join(home, ".local", "share", "codex-resume", "index.sqlite")
	}
	if c.ConfigPath == "" {
		c.ConfigPath = filepath.Join(c.CodexHome, fileName)
	}
	return nil
}

func (c AppConfig) SessionsDir() string { return filepath.Join(c.CodexHome, "sessions") }

func DetectCodexHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("CODEX_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

// File is the optional resume.yaml.
type File struct {
	Binary           string         `yaml:"binary"`
	ExtraDropPhrases DropPhrases    `yaml:"extra_drop_phrases"`
	MaxChars         map[string]int `yaml:"max_chars"`
}

type DropPhrases struct {
	User      []string `yaml:"user"`
	Assistant []string `yaml:"assistant"`
}

// LoadFile reads path. A missing file yields the zero File.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// MaxCharsFor returns the configured budget for variant, or def.
func (f File) MaxCharsFor(variant string, def int) int {
	if n, ok := f.MaxChars[variant]; ok && n > 0 {
		return n
	}
	return def
}

// ConsumeSelectedSession returns the pinned session path and clears it from
// the environment so it never leaks into a child process.
func ConsumeSelectedSession() string {
	path := os.Getenv(SelectedSessionEnv)
	_ = os.Unsetenv(SelectedSessionEnv)
	return path
}

func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose || os.Getenv(DebugEnv) != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
