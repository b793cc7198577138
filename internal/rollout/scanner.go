package rollout

import (
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// rolloutStampRe matches the creation stamp Codex embeds in rollout file
// names: rollout-2025-11-27T09-23-19-<uuid>.jsonl.
var rolloutStampRe = regexp.MustCompile(`rollout-(\d{4})-(\d{2})-(\d{2})T(\d{2})-(\d{2})-(\d{2})`)

const sortKeyLayout = "20060102150405"

// Discover walks root for *.jsonl session logs. Unreadable entries are
// skipped and a missing root yields no files.
func Discover(root string) ([]SessionFile, error) {
	files := make([]SessionFile, 0, 64)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, newSessionFile(path, info.Size(), info.ModTime()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func newSessionFile(path string, size int64, mtime time.Time) SessionFile {
	name := filepath.Base(path)
	return SessionFile{
		Path:    path,
		Name:    name,
		Size:    size,
		ModTime: mtime,
		SortKey: SortKey(name, mtime),
	}
}

// SortKey derives a lexically comparable ranking key. A timestamp embedded in
// the file name wins; otherwise the modification time is formatted the same
// way so both kinds of key compare against each other.
func SortKey(name string, mtime time.Time) string {
	if m := rolloutStampRe.FindStringSubmatch(name); len(m) == 7 {
		return strings.Join(m[1:], "")
	}
	return mtime.Local().Format(sortKeyLayout)
}

// StampTime parses the embedded rollout timestamp, if any.
func StampTime(name string) (time.Time, bool) {
	m := rolloutStampRe.FindStringSubmatch(name)
	if len(m) != 7 {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(sortKeyLayout, strings.Join(m[1:], ""), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Rank orders files most recent first. Equal keys fall back to the path so
// the order is total.
func Rank(files []SessionFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].SortKey != files[j].SortKey {
			return files[i].SortKey > files[j].SortKey
		}
		return files[i].Path > files[j].Path
	})
}
