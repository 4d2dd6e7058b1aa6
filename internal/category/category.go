// Package category resolves spending categories by keyword containment.
package category

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// MatchMode selects how a keyword must appear in a description.
type MatchMode string

const (
	// MatchSubstring matches a keyword anywhere, including inside longer words.
	MatchSubstring MatchMode = "substring"
	// MatchWord requires the keyword to be bounded by non-word runes.
	MatchWord MatchMode = "word"
)

// ParseMatchMode parses a configured match mode. An empty string selects
// MatchSubstring.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchWord:
		return MatchWord, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (expected %s or %s)", s, MatchSubstring, MatchWord)
	}
}

type entry struct {
	keyword    string
	needles    []string
	categoryID int64
}

// Index is an immutable, recency-ordered keyword snapshot.
type Index struct {
	mode    MatchMode
	entries []entry
}

// NewIndex builds an index over keywords, most recently created first with
// ties broken by higher ID. aliases, if non-nil, supplies alternative
// spellings that match on behalf of a keyword.
func NewIndex(keywords []model.CategoryKeyword, aliases *synonym.Registry, mode MatchMode) *Index {
	sorted := append([]model.CategoryKeyword(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	if mode == "" {
		mode = MatchSubstring
	}
	idx := &Index{mode: mode, entries: make([]entry, 0, len(sorted))}
	for _, kw := range sorted {
		folded := textnorm.Fold(kw.Keyword)
		if folded == "" || kw.CategoryID == 0 {
			continue
		}
		e := entry{keyword: folded, categoryID: kw.CategoryID, needles: []string{folded}}
		if aliases != nil {
			for _, alias := range aliases.AllAliasesFor(folded) {
				if a := textnorm.Fold(alias); a != "" && a != folded {
					e.needles = append(e.needles, a)
				}
			}
		}
		idx.entries = append(idx.entries, e)
	}
	return idx
}

// Mode returns the index's match mode.
func (idx *Index) Mode() MatchMode {
	return idx.mode
}

// Len returns the number of indexed keywords.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Keywords returns the folded keywords in match order.
func (idx *Index) Keywords() []string {
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.keyword
	}
	return out
}

// Known reports whether token is an indexed keyword or one of its aliases.
func (idx *Index) Known(token string) bool {
	if idx == nil {
		return false
	}
	folded := textnorm.Fold(token)
	for _, e := range idx.entries {
		for _, n := range e.needles {
			if n == folded {
				return true
			}
		}
	}
	return false
}

func (idx *Index) contains(description, needle string) bool {
	if idx.mode == MatchWord {
		return textnorm.ContainsWord(description, needle)
	}
	return strings.Contains(description, needle)
}

// Result is the outcome of categorizing a description.
type Result struct {
	// MatchedKeywords lists every matching keyword in index order.
	MatchedKeywords []string
	// CategoryID is the category of the first match, or 0.
	CategoryID      int64
	AutoCategorized bool
}

// Categorize matches description against idx. The most recent matching
// keyword decides the category; empty input or a nil index never match.
func Categorize(description string, idx *Index) Result {
	folded := textnorm.Fold(description)
	if folded == "" || idx == nil {
		return Result{}
	}

	var res Result
	for _, e := range idx.entries {
		for _, needle := range e.needles {
			if !idx.contains(folded, needle) {
				continue
			}
			if !res.AutoCategorized {
				res.CategoryID = e.categoryID
				res.AutoCategorized = true
			}
			res.MatchedKeywords = append(res.MatchedKeywords, e.keyword)
			break
		}
	}
	return res
}
