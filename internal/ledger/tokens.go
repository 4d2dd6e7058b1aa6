// Package ledger records description terms no category keyword recognized and
// turns user assignments into keywords, city aliases and bulk
// reclassification of stored expenses.
package ledger

import "github.com/Veraticus/tally/internal/textnorm"

// Vocabulary reports whether a folded token is already a known keyword.
// *category.Index satisfies it.
type Vocabulary interface {
	Known(token string) bool
}

// KeywordSet is a Vocabulary over a fixed list of keywords.
type KeywordSet map[string]struct{}

// NewKeywordSet folds keywords into a set.
func NewKeywordSet(keywords ...string) KeywordSet {
	set := make(KeywordSet, len(keywords))
	for _, kw := range keywords {
		if f := textnorm.Fold(kw); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// Known implements Vocabulary.
func (s KeywordSet) Known(token string) bool {
	_, ok := s[textnorm.Fold(token)]
	return ok
}

var defaultTokenizer = textnorm.NewTokenizer(textnorm.DefaultMinTokenLength)

// Tokenize splits a description into candidate terms with the default
// tokenizer: punctuation stripped, folded, tokens shorter than three runes,
// stop words and numbers dropped, first occurrence kept.
func Tokenize(description string) []string {
	return defaultTokenizer.Tokenize(description)
}

// Candidates returns the tokens of description that are not known keywords.
func Candidates(description string, known Vocabulary) []string {
	return candidates(defaultTokenizer, description, known)
}

func candidates(tok *textnorm.Tokenizer, description string, known Vocabulary) []string {
	tokens := tok.Tokenize(description)
	if known == nil {
		return tokens
	}
	out := tokens[:0]
	for _, t := range tokens {
		if !known.Known(t) {
			out = append(out, t)
		}
	}
	return out
}
