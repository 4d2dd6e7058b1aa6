package textnorm

import "unicode"

// DefaultMinTokenLength is the shortest token, in runes, kept by Tokenize.
const DefaultMinTokenLength = 3

// defaultStopWords lists folded tokens that never identify a merchant or a
// category: statement boilerplate, prepositions and payment verbs.
var defaultStopWords = []string{
	// Russian / Belarusian statement boilerplate
	"оплата", "оплаты", "услуг", "услуги", "покупка", "покупки", "товаров",
	"товары", "перевод", "платеж", "платёж", "списание", "зачисление",
	"карта", "карты", "картой", "чек", "для", "при", "или", "без", "над",
	"под", "про", "это", "так", "как", "что", "город", "рб", "рф",
	// English statement boilerplate
	"the", "and", "for", "with", "from", "payment", "purchase", "card",
	"pos", "debit", "credit", "transaction", "transfer", "online", "shop",
	"store", "city", "blr", "rus",
}

// Tokenizer splits descriptions into candidate keyword tokens.
type Tokenizer struct {
	stopWords map[string]struct{}
	minLength int
}

// NewTokenizer creates a tokenizer. A minLength below 1 selects
// DefaultMinTokenLength. Extra stop words are folded and added to the
// built-in set.
func NewTokenizer(minLength int, extraStopWords ...string) *Tokenizer {
	if minLength < 1 {
		minLength = DefaultMinTokenLength
	}
	stop := make(map[string]struct{}, len(defaultStopWords)+len(extraStopWords))
	for _, w := range defaultStopWords {
		stop[Fold(w)] = struct{}{}
	}
	for _, w := range extraStopWords {
		if f := Fold(w); f != "" {
			stop[f] = struct{}{}
		}
	}
	return &Tokenizer{stopWords: stop, minLength: minLength}
}

// Tokenize strips punctuation, folds, splits on whitespace and drops short
// tokens, stop words and purely numeric tokens. The result is deduplicated
// and keeps first-occurrence order.
func (t *Tokenizer) Tokenize(description string) []string {
	folded := Fold(StripPunctuation(description))
	if folded == "" {
		return nil
	}

	var tokens []string
	seen := make(map[string]struct{})
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := folded[start:end]
		start = -1
		if RuneLen(tok) < t.minLength || isNumeric(tok) {
			return
		}
		if _, stop := t.stopWords[tok]; stop {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	for i, r := range folded {
		if r == ' ' {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(folded))

	return tokens
}

// IsStopWord reports whether the folded token is in the stop-word set.
func (t *Tokenizer) IsStopWord(token string) bool {
	_, ok := t.stopWords[Fold(token)]
	return ok
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
