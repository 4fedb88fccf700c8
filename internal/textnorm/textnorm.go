// Package textnorm canonicalizes free-text ingredient phrases so that
// differently-worded mentions of the same food compare equal.
package textnorm

import (
	"regexp"
	"strings"
)

// stopWords are purely descriptive qualifiers that do not change the
// nutritional identity of an ingredient. They are removed before matching so
// "fresh organic spinach" and "spinach" normalize to the same phrase.
var stopWords = map[string]struct{}{
	"fresh":       {},
	"organic":     {},
	"raw":         {},
	"cooked":      {},
	"dry":         {},
	"dried":       {},
	"unsalted":    {},
	"salted":      {},
	"low-fat":     {},
	"lowfat":      {},
	"reduced-fat": {},
	"lean":        {},
	"skinless":    {},
	"boneless":    {},
	"plain":       {},
	"firm":        {},
	"extra-firm":  {},
	"silken":      {},
	"soft":        {},
	"extra":       {},
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Normalize lower-cases the input, folds apostrophe variants, tokenizes on
// alphanumeric runs, drops stop words, and rejoins with single spaces.
// It is total (empty in, empty out) and idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.TrimSpace(s)

	toks := wordRe.FindAllString(s, -1)
	kept := toks[:0]
	for _, t := range toks {
		if _, stop := stopWords[t]; stop {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// TokenSet returns the set of tokens in the normalized form of raw.
func TokenSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(Normalize(raw)) {
		set[t] = struct{}{}
	}
	return set
}

// IsSubset reports whether every token in a is present in b.
// An empty a is a subset of anything.
func IsSubset(a, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; !ok {
			return false
		}
	}
	return true
}

// Overlaps reports whether a and b share at least one token.
func Overlaps(a, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}
