// Package engine coordinates discovery, caching and reconstruction, and
// fronts the query surface the CLI, TUI and MCP server share. Sessions are
// rebuilt from the logs on every scan; the snapshot cache only short-cuts
// files that have not changed since the last run.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/neilberkman/ccreplay/internal/core/cache"
	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/discovery"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/internal/core/search"
	"github.com/neilberkman/ccreplay/internal/core/stats"
	"github.com/neilberkman/ccreplay/internal/logging"
	"github.com/neilberkman/ccreplay/pkg/cclog"
)

// Engine owns the reconstructed session set for one process.
type Engine struct {
	cfg   *config.Config
	cache *cache.Cache
	log   *logrus.Entry

	mu       sync.Mutex
	sessions []*reconstruct.Session
	loaded   bool
}

// Progress reports one finished file during a scan. Callbacks run
// serialized, never concurrently.
type Progress struct {
	Done      int
	Total     int
	Path      string
	FromCache bool
}

// ScanResult summarizes one scan run.
type ScanResult struct {
	RunID     string
	Files     int
	Sessions  int
	FromCache int
	Failed    int
	Elapsed   time.Duration
}

// New builds an engine. A cache that cannot be opened disables caching
// rather than failing: the engine always works from the logs alone.
func New(cfg *config.Config) *Engine {
	e := &Engine{cfg: cfg, log: logging.NewLogger("engine")}
	if cfg.CacheDir != "" {
		c, err := cache.New(cfg.CacheDir)
		if err != nil {
			e.log.Warnf("cache disabled: %v", err)
		} else {
			e.cache = c
		}
	}
	return e
}

// Load scans the archive and replaces the in-memory session set. The
// progress callback, when non-nil, fires once per file.
func (e *Engine) Load(onProgress func(Progress)) (*ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanLocked(onProgress)
}

// Rebuild drops every cache entry and then scans, forcing full
// reconstruction of all files.
func (e *Engine) Rebuild(onProgress func(Progress)) (*ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		if err := e.cache.Clear(); err != nil {
			return nil, err
		}
	}
	return e.scanLocked(onProgress)
}

// Sessions returns the session set, scanning on first use. The returned
// slice is shared; callers must not mutate it.
func (e *Engine) Sessions() ([]*reconstruct.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		if _, err := e.scanLocked(nil); err != nil {
			return nil, err
		}
	}
	return e.sessions, nil
}

// Session resolves an id, accepting any unique prefix.
func (e *Engine) Session(id string) (*reconstruct.Session, error) {
	sessions, err := e.Sessions()
	if err != nil {
		return nil, err
	}

	var prefixed []*reconstruct.Session
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
		if strings.HasPrefix(s.ID, id) {
			prefixed = append(prefixed, s)
		}
	}
	switch len(prefixed) {
	case 1:
		return prefixed[0], nil
	case 0:
		return nil, fmt.Errorf("session not found: %s", id)
	default:
		return nil, fmt.Errorf("session id %s is ambiguous (%d matches)", id, len(prefixed))
	}
}

// Search parses filter tokens out of the query, scopes the session set,
// and runs the match pass. Regex queries skip filter parsing so patterns
// with spaces survive intact.
func (e *Engine) Search(query string, opts search.Options) ([]search.SearchResult, error) {
	sessions, err := e.Sessions()
	if err != nil {
		return nil, err
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = e.cfg.MaxResults
	}

	if opts.Regex {
		return search.Search(sessions, query, opts), nil
	}

	f := search.ParseQuery(query)
	if f.Query == "" {
		return nil, nil
	}
	return search.Search(search.FilterSessions(sessions, f), f.Query, opts), nil
}

// DailyStatistics aggregates activity per calendar day, newest first.
func (e *Engine) DailyStatistics() ([]stats.DayAggregate, error) {
	sessions, err := e.Sessions()
	if err != nil {
		return nil, err
	}
	return stats.Daily(sessions), nil
}

// ProjectStatistics aggregates activity per project, busiest first.
func (e *Engine) ProjectStatistics() ([]stats.ProjectAggregate, error) {
	sessions, err := e.Sessions()
	if err != nil {
		return nil, err
	}
	return stats.ByProject(sessions), nil
}

// Overview aggregates the whole archive.
func (e *Engine) Overview() (*stats.Overview, error) {
	sessions, err := e.Sessions()
	if err != nil {
		return nil, err
	}
	return stats.Overall(sessions), nil
}

func (e *Engine) scanLocked(onProgress func(Progress)) (*ScanResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.WithField("run_id", runID)

	root := e.cfg.LogsDir
	if root == "" {
		var err error
		root, err = discovery.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}

	files, err := discovery.Find(root)
	if err != nil {
		return nil, err
	}
	log.Infof("scanning %d log files in %s", len(files), root)

	workers := e.cfg.Workers
	if workers < 1 {
		workers = config.DefaultWorkers
	}

	results := make([]*reconstruct.Session, len(files))
	var progressMu sync.Mutex
	var done, fromCache, failed int

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				s, cached, err := e.loadOne(files[idx])
				progressMu.Lock()
				results[idx] = s
				done++
				if cached {
					fromCache++
				}
				if err != nil {
					failed++
					log.Warnf("failed to load %s: %v", files[idx].Path, err)
				}
				if onProgress != nil {
					onProgress(Progress{Done: done, Total: len(files), Path: files[idx].Path, FromCache: cached})
				}
				progressMu.Unlock()
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var sessions []*reconstruct.Session
	for _, s := range results {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})

	e.sessions = sessions
	e.loaded = true

	res := &ScanResult{
		RunID:     runID,
		Files:     len(files),
		Sessions:  len(sessions),
		FromCache: fromCache,
		Failed:    failed,
		Elapsed:   time.Since(start),
	}
	log.Infof("reconstructed %d sessions (%d cached, %d failed) in %s",
		res.Sessions, res.FromCache, res.Failed, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// loadOne resolves one file to a session, through the cache when possible.
// A nil session with nil error is a file that holds no conversation.
func (e *Engine) loadOne(f discovery.LogFile) (*reconstruct.Session, bool, error) {
	if e.cache != nil {
		if s, ok := e.cache.Get(f); ok {
			return s, true, nil
		}
	}

	entries, first, err := cclog.DecodeFile(f.Path)
	if err != nil {
		return nil, false, err
	}

	s := reconstruct.ReconstructSession(f.Path, entries, first)
	if s != nil {
		s.FileSize = f.Size
		s.FileMtime = time.Unix(f.Mtime, 0)
		if s.Project == "" {
			s.Project = f.Project
		}
	}

	if e.cache != nil {
		if err := e.cache.Put(f, s); err != nil {
			e.log.Warnf("failed to cache %s: %v", f.Path, err)
		}
	}
	return s, false, nil
}
