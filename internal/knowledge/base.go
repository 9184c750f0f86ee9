// Package knowledge holds the studio FAQ and the keyword matcher that answers
// free-text questions from it.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoEntries is returned when a knowledge base has nothing to match against.
	ErrNoEntries = errors.New("knowledge: at least one entry is required")
	// ErrNoFallback is returned when the fallback answer is blank.
	ErrNoFallback = errors.New("knowledge: fallback answer is required")
)

// FAQEntry is a single question/answer pair in the knowledge base.
type FAQEntry struct {
	ID       int      `yaml:"id"`
	Category string   `yaml:"category"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// Base is an ordered, read-only FAQ plus the fallback answer used when
// nothing matches. Entry order decides ties.
type Base struct {
	entries  []FAQEntry
	keywords []map[string]struct{}
	fallback string
	services []string
}

// New validates entries and builds a Base. Keywords are normalized the same
// way incoming messages are, so "Öffnungszeiten!" and "öffnungszeiten" match.
// Whitespace inside a keyword is collapsed but not split.
func New(entries []FAQEntry, fallback string, services []string) (*Base, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if strings.TrimSpace(fallback) == "" {
		return nil, ErrNoFallback
	}

	b := &Base{
		entries:  make([]FAQEntry, 0, len(entries)),
		keywords: make([]map[string]struct{}, 0, len(entries)),
		fallback: fallback,
	}
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("knowledge: duplicate entry id %d", e.ID)
		}
		seen[e.ID] = struct{}{}
		if strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("knowledge: entry %d has no answer", e.ID)
		}

		// A multi-word keyword stays one element of the set, so it only
		// counts when a single message token equals it.
		set := make(map[string]struct{}, len(e.Keywords))
		for _, kw := range e.Keywords {
			if norm := strings.Join(strings.Fields(Normalize(kw)), " "); norm != "" {
				set[norm] = struct{}{}
			}
		}
		if len(set) == 0 {
			return nil, fmt.Errorf("knowledge: entry %d has no keywords", e.ID)
		}

		e.Keywords = append([]string(nil), e.Keywords...)
		b.entries = append(b.entries, e)
		b.keywords = append(b.keywords, set)
	}
	for _, s := range services {
		if s = strings.TrimSpace(s); s != "" {
			b.services = append(b.services, s)
		}
	}
	return b, nil
}

// Entries returns a copy of the entries in match order.
func (b *Base) Entries() []FAQEntry {
	out := make([]FAQEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Fallback is the answer given when no entry matches.
func (b *Base) Fallback() string {
	return b.fallback
}

// Services lists the bookable treatments in display order.
func (b *Base) Services() []string {
	return append([]string(nil), b.services...)
}

// CanonicalService returns the catalogue spelling of a service mentioned in
// text, matching case-insensitively on whole words.
func (b *Base) CanonicalService(text string) (string, bool) {
	tokens := Tokenize(text)
	for _, svc := range b.services {
		words := strings.Fields(Normalize(svc))
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if _, ok := tokens[w]; !ok {
				all = false
				break
			}
		}
		if all {
			return svc, true
		}
	}
	return "", false
}
