package classifier

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// keywordMatcher finds which dictionary terms occur in a text in one pass.
// ahocorasick.Matcher keeps per-call state, so Match is serialized.
type keywordMatcher struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
}

func newKeywordMatcher(terms []string) *keywordMatcher {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := normalizeText(strings.TrimSpace(term)); t != "" {
			normalized = append(normalized, t)
		}
	}

	km := &keywordMatcher{terms: normalized}
	if len(normalized) > 0 {
		km.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return km
}

// match returns the sorted, distinct indices of the terms found in text.
// text must already be normalized.
func (k *keywordMatcher) match(text string) []int {
	if k.matcher == nil || text == "" {
		return nil
	}

	k.mu.Lock()
	hits := k.matcher.Match([]byte(text))
	k.mu.Unlock()

	seen := make(map[int]bool, len(hits))
	indices := make([]int, 0, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(k.terms) || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// matchedTerms returns the terms found in text, in dictionary order
func (k *keywordMatcher) matchedTerms(text string) []string {
	indices := k.match(text)
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = k.terms[idx]
	}
	return terms
}
