package knowledge

import (
	"strings"
	"unicode"
)

// Match is the outcome of scoring a message against the knowledge base.
type Match struct {
	Entry FAQEntry
	Score int
}

// Normalize lower-cases text and removes every rune that is not a letter,
// digit or whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize returns the set of words in the normalized text.
func Tokenize(text string) map[string]struct{} {
	fields := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Match scores message against every entry by counting shared words and
// returns the best one. Only a strictly higher score replaces the current
// best, so the earliest entry wins a tie. ok is false when nothing overlaps.
func (b *Base) Match(message string) (Match, bool) {
	tokens := Tokenize(message)
	if len(tokens) == 0 {
		return Match{}, false
	}

	best := -1
	bestScore := 0
	for i, kw := range b.keywords {
		score := overlap(tokens, kw)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Entry: b.entries[best], Score: bestScore}, true
}

// Answer returns the matched answer, or the fallback and false.
func (b *Base) Answer(message string) (string, bool) {
	if m, ok := b.Match(message); ok {
		return m.Entry.Answer, true
	}
	return b.fallback, false
}

func overlap(tokens, keywords map[string]struct{}) int {
	small, large := tokens, keywords
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if _, ok := large[t]; ok {
			n++
		}
	}
	return n
}
