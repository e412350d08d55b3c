// Package cache persists reconstructed sessions between runs so unchanged
// log files never get re-parsed. Entries are gzip-compressed JSON keyed by
// a hash of the log path, each carrying the source file's size and mtime;
// an entry whose recorded metadata no longer matches the file on disk is a
// miss. A cache is never authoritative: every miss just falls back to
// reconstruction.
package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neilberkman/ccreplay/internal/core/discovery"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// Cache is a directory of session snapshots.
type Cache struct {
	dir string
}

// envelope wraps a snapshot with the source file metadata used for
// validation. A nil Session is a valid snapshot: it records that the file
// reconstructs to no session at all.
type envelope struct {
	Path    string               `json:"path"`
	Size    int64                `json:"size"`
	Mtime   int64                `json:"mtime"`
	Session *reconstruct.Session `json:"session"`
}

// New opens a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Get returns the cached session for a log file. The second return is
// false on a miss: no entry, unreadable entry, or metadata that no longer
// matches the file. A true with a nil session means the file is known to
// hold no session.
func (c *Cache) Get(f discovery.LogFile) (*reconstruct.Session, bool) {
	file, err := os.Open(c.entryPath(f.Path))
	if err != nil {
		return nil, false
	}
	defer func() {
		_ = file.Close()
	}()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, false
	}
	defer func() {
		_ = zr.Close()
	}()

	var env envelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, false
	}
	if env.Path != f.Path || env.Size != f.Size || env.Mtime != f.Mtime {
		return nil, false
	}
	return env.Session, true
}

// Put stores a snapshot for a log file. The write goes to a temp file
// first so a crash never leaves a torn entry behind.
func (c *Cache) Put(f discovery.LogFile, s *reconstruct.Session) error {
	env := envelope{Path: f.Path, Size: f.Size, Mtime: f.Mtime, Session: s}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(&env); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.entryPath(f.Path)); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry, forcing full reconstruction on the next run.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	return nil
}

// entryPath keys entries by a hash of the absolute log path, so renames
// and moves naturally invalidate.
func (c *Cache) entryPath(logPath string) string {
	sum := sha256.Sum256([]byte(logPath))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json.gz")
}
