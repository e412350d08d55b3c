// Package metadata pulls structured references out of conversation text:
// issue ids and file paths, with rough mention tracking so a session can
// answer "what was this about" without re-reading every turn.
package metadata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// SessionMetadata is the set of references found in one session, keyed by
// normalized id and by path.
type SessionMetadata struct {
	IssueIDs  map[string]*IssueOccurrence
	FilePaths map[string]*FileOccurrence
}

// IssueOccurrence tracks where an issue id appears, by conversation index.
type IssueOccurrence struct {
	IssueID           string
	FirstMentionIndex int
	LastMentionIndex  int
	MentionCount      int
}

// FileOccurrence tracks where a file path appears. LastModifiedIndex is -1
// when the path was only ever read, never edited.
type FileOccurrence struct {
	FilePath          string
	MentionCount      int
	LastModifiedIndex int
}

// Issues returns occurrences ordered most-mentioned first.
func (m *SessionMetadata) Issues() []*IssueOccurrence {
	out := make([]*IssueOccurrence, 0, len(m.IssueIDs))
	for _, occ := range m.IssueIDs {
		out = append(out, occ)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].IssueID < out[j].IssueID
	})
	return out
}

// Files returns occurrences ordered most-mentioned first.
func (m *SessionMetadata) Files() []*FileOccurrence {
	out := make([]*FileOccurrence, 0, len(m.FilePaths))
	for _, occ := range m.FilePaths {
		out = append(out, occ)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].FilePath < out[j].FilePath
	})
	return out
}

// issuePattern couples a regex with how its capture should be labelled.
// Numeric captures (GitHub-style) keep their # so they stay told apart
// from tracker keys.
type issuePattern struct {
	re      *regexp.Regexp
	numeric bool
}

// Extractor extracts structured metadata from conversation text.
type Extractor struct {
	issuePatterns []issuePattern
	filePatterns  []*regexp.Regexp
}

// NewExtractor compiles the pattern set once.
func NewExtractor() *Extractor {
	return &Extractor{
		issuePatterns: []issuePattern{
			// Tracker keys: ENA-6530, proj-123
			{re: regexp.MustCompile(`\b([A-Za-z]{2,10}-\d+)\b`)},
			// GitHub-style: #1234, two digits minimum to dodge enumerations
			{re: regexp.MustCompile(`#(\d{2,})`), numeric: true},
			// Explicit mentions: "issue: 1234", "issue #1234"
			{re: regexp.MustCompile(`(?i)issue[:\s]+#?(\d+)`), numeric: true},
		},
		filePatterns: []*regexp.Regexp{
			// Quoted and backticked paths
			regexp.MustCompile(`"([a-zA-Z0-9_\-/.]+\.[a-zA-Z0-9]+)"`),
			regexp.MustCompile("`([a-zA-Z0-9_\\-/.]+\\.[a-zA-Z0-9]+)`"),
			// Bare paths: at least one slash plus an extension; also covers
			// path:line references since the match stops at the colon
			regexp.MustCompile(`\b([a-zA-Z0-9_\-]+(?:/[a-zA-Z0-9_\-]+)+\.[a-zA-Z0-9]{2,5})\b`),
		},
	}
}

// ExtractSession walks a session's conversation pairs, both sides of each
// turn, and aggregates the references it finds.
func (e *Extractor) ExtractSession(s *reconstruct.Session) *SessionMetadata {
	meta := &SessionMetadata{
		IssueIDs:  make(map[string]*IssueOccurrence),
		FilePaths: make(map[string]*FileOccurrence),
	}
	for i := range s.Pairs {
		p := &s.Pairs[i]
		e.scanText(meta, p.Index, p.UserContent)
		e.scanText(meta, p.Index, p.AssistantContent)
	}
	return meta
}

func (e *Extractor) scanText(meta *SessionMetadata, index int, text string) {
	if text == "" {
		return
	}

	for _, issueID := range e.findIssueIDs(text) {
		key := strings.ToLower(issueID)
		if occ, exists := meta.IssueIDs[key]; exists {
			occ.LastMentionIndex = index
			occ.MentionCount++
		} else {
			meta.IssueIDs[key] = &IssueOccurrence{
				IssueID:           key,
				FirstMentionIndex: index,
				LastMentionIndex:  index,
				MentionCount:      1,
			}
		}
	}

	for _, filePath := range e.findFilePaths(text) {
		modified := isModificationContext(text, filePath)
		if occ, exists := meta.FilePaths[filePath]; exists {
			occ.MentionCount++
			if modified {
				occ.LastModifiedIndex = index
			}
		} else {
			lastModified := -1
			if modified {
				lastModified = index
			}
			meta.FilePaths[filePath] = &FileOccurrence{
				FilePath:          filePath,
				MentionCount:      1,
				LastModifiedIndex: lastModified,
			}
		}
	}
}

// findIssueIDs returns the distinct issue ids in one text, numeric ids
// prefixed with #.
func (e *Extractor) findIssueIDs(text string) []string {
	seen := make(map[string]bool)
	var issues []string
	for _, p := range e.issuePatterns {
		for _, match := range p.re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			issueID := match[1]
			if p.numeric {
				issueID = "#" + issueID
			}
			key := strings.ToLower(issueID)
			if !seen[key] && isValidIssueID(key) {
				issues = append(issues, issueID)
				seen[key] = true
			}
		}
	}
	return issues
}

// findFilePaths returns the distinct file paths in one text.
func (e *Extractor) findFilePaths(text string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, re := range e.filePatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			filePath := strings.TrimSpace(match[1])
			if !seen[filePath] && isValidFilePath(filePath) {
				files = append(files, filePath)
				seen[filePath] = true
			}
		}
	}
	return files
}

// issueFalsePositives are tech terms that match the tracker-key shape.
var issueFalsePositives = map[string]bool{
	"utf-8": true, "iso-8859": true, "us-ascii": true, "x-www": true,
	"application-json": true, "text-plain": true, "user-agent": true,
	"en-us": true, "fr-fr": true, "de-de": true,
}

func isValidIssueID(id string) bool {
	if len(id) < 3 {
		return false
	}
	if issueFalsePositives[id] {
		return false
	}
	if strings.HasPrefix(id, "#") {
		return true
	}
	parts := strings.Split(id, "-")
	return len(parts) == 2 && len(parts[0]) >= 2 && len(parts[1]) >= 1
}

func isValidFilePath(path string) bool {
	if len(path) < 5 {
		return false
	}
	if !hasValidExtension(path) {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "@") || strings.Contains(path, " ") {
		return false
	}
	return true
}

var validExtensions = []string{
	// Code
	".go", ".ex", ".exs", ".eex", ".leex", ".heex",
	".js", ".ts", ".jsx", ".tsx",
	".py", ".rb", ".java", ".c", ".cpp", ".h", ".hpp",
	".rs", ".php", ".swift", ".kt",

	// Config & data
	".json", ".yaml", ".yml", ".toml", ".ini", ".xml",
	".sql", ".env",

	// Docs
	".md", ".txt", ".rst", ".adoc",

	// Web
	".html", ".css", ".scss", ".sass", ".less",

	// Other
	".sh", ".bash", ".zsh", ".fish",
	".graphql", ".proto",
}

func hasValidExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range validExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// modificationKeywords signal that a file mention is an edit, not a read.
var modificationKeywords = []string{
	"edit", "modify", "update", "change", "write", "create",
	"add", "remove", "delete", "fix", "patch",
	"modified", "updated", "changed", "created", "edited",
}

// isModificationContext checks for a modification keyword within 100
// characters of the file path mention.
func isModificationContext(text, filePath string) bool {
	lower := strings.ToLower(text)
	fileIdx := strings.Index(lower, strings.ToLower(filePath))
	if fileIdx == -1 {
		return false
	}

	start := fileIdx - 100
	if start < 0 {
		start = 0
	}
	end := fileIdx + len(filePath) + 100
	if end > len(lower) {
		end = len(lower)
	}
	context := lower[start:end]

	for _, keyword := range modificationKeywords {
		if strings.Contains(context, keyword) {
			return true
		}
	}
	return false
}
