// Package discovery locates archived session logs on disk. The archive
// layout is one directory per project, its name a dash-encoding of the
// project's absolute path, holding one .jsonl file per session.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LogFile is one discovered session log plus the file metadata callers
// need for cache validation and display.
type LogFile struct {
	Path    string
	Project string // decoded from the parent directory name
	Size    int64
	Mtime   int64 // unix seconds
}

// DefaultRoot is the standard archive location, ~/.claude/projects.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// Find walks root and returns every .jsonl file, newest mtime first.
// Unreadable subtrees are skipped; only a missing or unreadable root is an
// error. Sub-agent logs (agent-*.jsonl) are included like any other file.
func Find(root string) ([]LogFile, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to read log directory %s: %w", root, err)
	}

	var files []LogFile
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}
		files = append(files, LogFile{
			Path:    path,
			Project: decodeProjectDir(path),
			Size:    info.Size(),
			Mtime:   info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Mtime != files[j].Mtime {
			return files[i].Mtime > files[j].Mtime
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// decodeProjectDir recovers a project path from the archive's directory
// naming: /root/-Users-neil-xuku-invoice/s.jsonl decodes to
// /Users/neil/xuku/invoice. Directories without the leading dash pass
// through as-is. The decode is lossy when the original path contained
// dashes, so callers prefer the cwd recorded inside the log.
func decodeProjectDir(filePath string) string {
	dir := filepath.Dir(filePath)
	base := filepath.Base(dir)

	if len(base) > 0 && base[0] == '-' {
		return "/" + strings.ReplaceAll(base[1:], "-", "/")
	}
	return dir
}
