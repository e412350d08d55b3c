// Package search evaluates literal, OR-disjunction and regex queries over
// every conversation pair of every session, with bounded context windows
// around each match. It is positional and in-memory: the field precedence,
// the early exit at the result cap, and the cleanup applied before context
// extraction are all part of the contract.
package search

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neilberkman/ccreplay/internal/core/extract"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// Match types in evaluation order; the first field to match wins, so a
// pair never reports two match types.
const (
	MatchUser      = "user"
	MatchAssistant = "assistant"
	MatchThinking  = "thinking"
)

// DefaultMaxResults caps a search when the caller does not.
const DefaultMaxResults = 50

// contextRadius is the window, in runes, kept on each side of a match.
const contextRadius = 50

// Options control a search pass.
type Options struct {
	Regex         bool
	CaseSensitive bool
	MaxResults    int
}

// SearchResult is one matched pair plus enough back-reference to resolve
// it without re-searching.
type SearchResult struct {
	SessionID      string
	SessionSummary string
	ProjectPath    string
	PairIndex      int
	MatchType      string
	MatchedText    string
	MatchContext   string
	Timestamp      time.Time
}

// Search evaluates query against the sessions in order and returns at most
// MaxResults results, sorted newest-first by the matched pair's user
// timestamp. Scanning stops the moment the cap is reached; later sessions
// are never visited. An invalid regex yields an empty result set, not an
// error, so an interactive caller never stalls on a typo.
func Search(sessions []*reconstruct.Session, query string, opts Options) []SearchResult {
	m, ok := compile(query, opts)
	if !ok {
		return nil
	}

	max := opts.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}

	var results []SearchResult
scan:
	for _, s := range sessions {
		if s == nil {
			continue
		}
		for i := range s.Pairs {
			r, ok := matchPair(m, &s.Pairs[i])
			if !ok {
				continue
			}
			r.SessionID = s.ID
			r.SessionSummary = s.Summary
			r.ProjectPath = s.Project
			results = append(results, r)
			if len(results) >= max {
				break scan
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return results
}

// matchPair checks one pair field by field: user content, assistant
// content, then each thinking block in order. Cleanup runs before matching
// so results never surface tool-call noise as matched text or context, and
// the user field gets the full user-side cleanup while the others only
// lose system tags and artifacts.
func matchPair(m *matcher, p *reconstruct.ConversationPair) (SearchResult, bool) {
	r := SearchResult{PairIndex: p.Index, Timestamp: p.UserTime}

	if matched, context, ok := m.match(extract.CleanUserText(p.UserContent)); ok {
		r.MatchType = MatchUser
		r.MatchedText = matched
		r.MatchContext = context
		return r, true
	}
	if matched, context, ok := m.match(extract.CleanDisplayText(p.AssistantContent)); ok {
		r.MatchType = MatchAssistant
		r.MatchedText = matched
		r.MatchContext = context
		return r, true
	}
	for i := range p.ThinkingBlocks {
		if matched, context, ok := m.match(extract.CleanDisplayText(p.ThinkingBlocks[i].Text)); ok {
			r.MatchType = MatchThinking
			r.MatchedText = matched
			r.MatchContext = context
			return r, true
		}
	}
	return SearchResult{}, false
}

// matcher is a compiled query: either a regex or a list of literal
// disjuncts.
type matcher struct {
	re            *regexp.Regexp
	terms         []string
	caseSensitive bool
}

// orSeparatorRE splits literal queries on an OR connective.
var orSeparatorRE = regexp.MustCompile(` OR | or `)

// compile builds a matcher. Regex queries compile case-insensitive; an
// invalid pattern reports false. Literal queries split into OR disjuncts,
// lower-cased unless the caller asked for case sensitivity.
func compile(query string, opts Options) (*matcher, bool) {
	if opts.Regex {
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			return nil, false
		}
		return &matcher{re: re}, true
	}

	var terms []string
	for _, term := range orSeparatorRE.Split(query, -1) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if !opts.CaseSensitive {
			term = strings.ToLower(term)
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, false
	}
	return &matcher{terms: terms, caseSensitive: opts.CaseSensitive}, true
}

// match runs the compiled query against one already-cleaned field.
func (m *matcher) match(text string) (matched, context string, ok bool) {
	if text == "" {
		return "", "", false
	}

	if m.re != nil {
		loc := m.re.FindStringIndex(text)
		if loc == nil {
			return "", "", false
		}
		return text[loc[0]:loc[1]], contextAround(text, loc[0], loc[1]), true
	}

	haystack := text
	if !m.caseSensitive {
		haystack = strings.ToLower(text)
	}
	for _, term := range m.terms {
		if idx := strings.Index(haystack, term); idx >= 0 {
			end := idx + len(term)
			if len(haystack) != len(text) {
				// Case folding moved byte offsets; slice the folded
				// text so the indexes stay valid.
				return haystack[idx:end], contextAround(haystack, idx, end), true
			}
			return text[idx:end], contextAround(text, idx, end), true
		}
	}
	return "", "", false
}

// contextAround widens [start,end) by contextRadius runes on each side,
// stepping rune-wise so multibyte text never splits.
func contextAround(text string, start, end int) string {
	lo := start
	for i := 0; i < contextRadius && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < contextRadius && hi < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[hi:])
		hi += size
	}

	context := text[lo:hi]
	if lo > 0 {
		context = "..." + context
	}
	if hi < len(text) {
		context = context + "..."
	}
	return context
}
