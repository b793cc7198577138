package rollout

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CwdMarker is the tag Codex writes into the environment context message of
// every session; its body is the working directory the session ran in.
const CwdMarker = "<cwd>"

var ErrNoSessions = errors.New("no sessions found")

// RangeError reports a 1-indexed session ordinal outside 1..Count.
type RangeError struct {
	Requested int
	Count     int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid session number %d. Available: 1-%d", e.Requested, e.Count)
}

// SelectorError reports a session selector that is not a number.
type SelectorError struct {
	Input string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid session number: %q", e.Input)
}

// Matcher decides whether a session file belongs to dir.
type Matcher interface {
	Matches(file SessionFile, dir string) bool
}

type MatcherFunc func(file SessionFile, dir string) bool

func (f MatcherFunc) Matches(file SessionFile, dir string) bool { return f(file, dir) }

// ScanMatcher reads the file itself on every call.
var ScanMatcher = MatcherFunc(func(file SessionFile, dir string) bool {
	return MatchesDir(file.Path, dir)
})

// MatchesDir reports whether a message in the log carries the cwd marker
// together with dir. Scanning stops at the first qualifying line.
func MatchesDir(path, dir string) bool {
	for rec, err := range Records(path) {
		if err != nil {
			return false
		}
		if rec.Type != RecordMessage {
			continue
		}
		for _, item := range rec.Content {
			if strings.Contains(item.Text, CwdMarker) && strings.Contains(item.Text, dir) {
				return true
			}
		}
	}
	return false
}

// Locate discovers the session logs under root, keeps those that ran in dir
// (all of them when dir is empty) and ranks them most recent first.
func Locate(root, dir string, matcher Matcher) ([]SessionFile, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discover sessions under %s: %w", root, err)
	}
	if dir != "" {
		if matcher == nil {
			matcher = ScanMatcher
		}
		kept := files[:0]
		for _, f := range files {
			if matcher.Matches(f, dir) {
				kept = append(kept, f)
			}
		}
		files = kept
	}
	Rank(files)
	return files, nil
}

// ParseOrdinal parses a 1-indexed session number as typed by the user.
func ParseOrdinal(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &SelectorError{Input: s}
	}
	return n, nil
}

// Select picks the session to resume. An explicit path wins over everything
// and need not be among ranked; otherwise ordinal is 1-indexed, so 1 is the
// most recent file.
func Select(ranked []SessionFile, ordinal int, explicitPath string) (SessionFile, error) {
	if explicitPath != "" {
		info, err := os.Stat(explicitPath)
		if err != nil {
			return SessionFile{}, fmt.Errorf("pinned session %s: %w", explicitPath, err)
		}
		return newSessionFile(explicitPath, info.Size(), info.ModTime()), nil
	}
	if len(ranked) == 0 {
		return SessionFile{}, ErrNoSessions
	}
	if ordinal < 1 || ordinal > len(ranked) {
		return SessionFile{}, &RangeError{Requested: ordinal, Count: len(ranked)}
	}
	return ranked[ordinal-1], nil
}
