package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"codex-resume/internal/rollout"

	_ "github.com/mattn/go-sqlite3"
)

// Cache remembers, per session file and directory, whether the file carries
// the cwd marker for that directory. Entries are keyed on the file's mtime and
// size; a changed file is rescanned. Cache failures never fail a lookup, they
// fall back to scanning the file.
type Cache struct {
	dbPath string
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex

	// Scan is the uncached predicate, rollout.MatchesDir by default.
	Scan func(path, dir string) bool

	hits   int
	misses int
}

func Open(dbPath string, reindex bool, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if reindex {
		_ = os.Remove(dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	c := &Cache{dbPath: dbPath, db: db, logger: logger, Scan: rollout.MatchesDir}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS marker_scans (
			path TEXT NOT NULL,
			dir TEXT NOT NULL,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL,
			matched INTEGER NOT NULL,
			PRIMARY KEY (path, dir)
		);`,
		`CREATE TABLE IF NOT EXISTS previews (
			path TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL,
			preview TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Matches implements rollout.Matcher.
func (c *Cache) Matches(file rollout.SessionFile, dir string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched, found, err := c.lookup(file, dir)
	if err != nil {
		c.logger.Warn("marker cache lookup failed", "path", file.Path, "err", err)
	}
	if found {
		c.hits++
		return matched
	}

	c.misses++
	matched = c.Scan(file.Path, dir)
	if err := c.store(file, dir, matched); err != nil {
		c.logger.Warn("marker cache store failed", "path", file.Path, "err", err)
	}
	return matched
}

func (c *Cache) lookup(file rollout.SessionFile, dir string) (matched, found bool, err error) {
	row := c.db.QueryRow(`SELECT matched FROM marker_scans WHERE path = ? AND dir = ? AND mtime = ? AND size = ?`,
		file.Path, dir, file.ModTime.UnixNano(), file.Size)
	var m int
	if err := row.Scan(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("read marker scan for %s: %w", file.Path, err)
	}
	return m != 0, true, nil
}

func (c *Cache) store(file rollout.SessionFile, dir string, matched bool) error {
	m := 0
	if matched {
		m = 1
	}
	if _, err := c.db.Exec(`
		INSERT INTO marker_scans(path, dir, mtime, size, matched)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(path, dir) DO UPDATE SET
			mtime=excluded.mtime,
			size=excluded.size,
			matched=excluded.matched
	`, file.Path, dir, file.ModTime.UnixNano(), file.Size, m); err != nil {
		return fmt.Errorf("update marker scan for %s: %w", file.Path, err)
	}
	return nil
}

// Preview returns a cached one-line preview of file, computing it with build
// when the file changed since it was cached.
func (c *Cache) Preview(file rollout.SessionFile, build func(path string) string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var preview string
	err := c.db.QueryRow(`SELECT preview FROM previews WHERE path = ? AND mtime = ? AND size = ?`,
		file.Path, file.ModTime.UnixNano(), file.Size).Scan(&preview)
	if err == nil {
		c.hits++
		return preview
	}
	if !errors.Is(err, sql.ErrNoRows) {
		c.logger.Warn("preview cache lookup failed", "path", file.Path, "err", err)
	}

	c.misses++
	preview = build(file.Path)
	if _, err := c.db.Exec(`
		INSERT INTO previews(path, mtime, size, preview)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime=excluded.mtime,
			size=excluded.size,
			preview=excluded.preview
	`, file.Path, file.ModTime.UnixNano(), file.Size, preview); err != nil {
		c.logger.Warn("preview cache store failed", "path", file.Path, "err", err)
	}
	return preview
}

// Prune drops cached rows for files that are no longer on disk.
func (c *Cache) Prune(ctx context.Context, files []rollout.SessionFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make(map[string]struct{}, len(files))
	for _, f := range files {
		keep[f.Path] = struct{}{}
	}

	rows, err := c.db.QueryContext(ctx, `SELECT path FROM marker_scans UNION SELECT path FROM previews`)
	if err != nil {
		return fmt.Errorf("query cached files: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan cached file row: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate cached files: %w", err)
	}
	_ = rows.Close()
	if len(stale) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prune tx: %w", err)
	}
	defer tx.Rollback()

	for _, path := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM marker_scans WHERE path = ?`, path); err != nil {
			return fmt.Errorf("delete stale marker scans for %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM previews WHERE path = ?`, path); err != nil {
			return fmt.Errorf("delete stale preview for %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prune: %w", err)
	}
	c.logger.Debug("pruned marker cache", "files", len(stale))
	return nil
}

// Stats reports cache hits and misses since Open.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
