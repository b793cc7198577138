package contextfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codex-resume/internal/budget"
)

// FileName is the side file written under the Codex home directory.
const FileName = "last-context.txt"

// ErrMissing is returned by Inspect when no side file has been written yet.
var ErrMissing = errors.New("context file not found")

// File is the overflow side file. It satisfies budget.Store.
type File struct {
	path string
}

func New(codexHome string) *File {
	return &File{path: filepath.Join(codexHome, FileName)}
}

func At(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Write replaces the file contents. Concurrent writers race; the last one wins.
func (f *File) Write(text string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create context directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write context file: %w", err)
	}
	return nil
}

// Stats describes a written side file.
type Stats struct {
	Path    string
	ModTime time.Time
	Chars   int
	Lines   int
	Tokens  int

	HasStart   bool
	HasEnd     bool
	HasTools   bool
	HasOutputs bool

	UserMessages      int
	AssistantMessages int
	ToolCalls         int
	ToolOutputs       int
}

// SmallTokens is the size under which a full history is suspiciously short.
const SmallTokens = 50000

func (s Stats) Small() bool { return s.Tokens < SmallTokens }

// Chunks reports how many reads of chunkLines lines cover the file.
func (s Stats) Chunks(chunkLines int) int {
	if chunkLines <= 0 {
		return 0
	}
	return (s.Lines + chunkLines - 1) / chunkLines
}

// Inspect reads the side file and counts the markers of the full layout.
func (f *File) Inspect() (Stats, error) {
	st, err := os.Stat(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Stats{}, ErrMissing
	}
	if err != nil {
		return Stats{}, fmt.Errorf("stat context file: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Stats{}, fmt.Errorf("read context file: %w", err)
	}
	return Measure(f.path, st.ModTime(), string(data)), nil
}

func Measure(path string, modTime time.Time, content string) Stats {
	chars := budget.Chars(content)
	return Stats{
		Path:    path,
		ModTime: modTime,
		Chars:   chars,
		Lines:   budget.Lines(content),
		Tokens:  chars / 4,

		HasStart:   strings.Contains(content, budget.FullHistoryStart),
		HasEnd:     strings.Contains(content, budget.FullHistoryEnd),
		HasTools:   strings.Contains(content, budget.ToolCallMarker),
		HasOutputs: strings.Contains(content, budget.OutputLabel),

		UserMessages:      strings.Count(content, budget.UserLabel),
		AssistantMessages: strings.Count(content, budget.AssistantLabel),
		ToolCalls:         strings.Count(content, budget.ToolCallMarker),
		ToolOutputs:       strings.Count(content, budget.OutputLabel),
	}
}
