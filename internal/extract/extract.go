// Package extract holds small lexical heuristics that pull quantities and
// food-item phrases out of free text. These run before any model call so the
// router can close simple clarification turns without a network round trip.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// NegativeReplies is the exact set of short replies treated as "nothing
// else". Membership is deliberately strict: negations embedded in longer
// sentences ("no thanks", "nah I'm good") must fall through to full
// classification instead of being misrouted here.
var NegativeReplies = []string{
	"no", "nope", "nah", "nothing else", "just that", "that's it", "only",
}

// consumptionVerbs are checked in order; the earliest occurrence in the text
// wins. Longer forms come first so "i had" matches before "had".
var consumptionVerbs = []string{"i had", "i ate", "had", "ate"}

// clauseBoundaries end an item phrase.
var clauseBoundaries = []string{" with ", " and ", ",", ";", " for ", ". "}

// mealWords mark a message as meal-related for recent-mention scanning.
var mealWords = []string{"breakfast", "lunch", "dinner", "snack", "ate", "had", "meal"}

var numberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(g|grams)?\b`)
var alphaRe = regexp.MustCompile(`^[a-zA-Z]+$`)

// Quantity locates the first numeral in text and returns it as grams.
// A numeral followed by a unit token ("g"/"grams") is preferred over a bare
// one, so "1 block (~300 g)" yields 300. Returns (0, false) when no numeral
// parses.
func Quantity(text string) (float64, bool) {
	matches := numberRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	// First numeral with an explicit unit wins; otherwise first numeral.
	for _, m := range matches {
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	}
	v, err := strconv.ParseFloat(matches[0][1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ItemPhrase extracts a short food-item phrase from text by looking for a
// consumption verb and taking what follows, truncated at the first clause
// boundary and capped at four alphabetic tokens. If no verb is found but the
// sentence has a comma, the clause after the comma is retried once.
// Returns ("", false) when nothing usable remains.
func ItemPhrase(text string) (string, bool) {
	lower := strings.ToLower(text)

	rest, ok := afterVerb(lower)
	if !ok {
		// "for breakfast today, eggs and toast": retry on the clause
		// after the comma when it contains a verb.
		if i := strings.Index(lower, ","); i >= 0 {
			rest, ok = afterVerb(lower[i+1:])
		}
	}
	if !ok {
		return "", false
	}

	for _, b := range clauseBoundaries {
		if i := strings.Index(rest, b); i >= 0 {
			rest = rest[:i]
		}
	}

	var words []string
	for _, tok := range strings.Fields(rest) {
		if !alphaRe.MatchString(tok) {
			continue
		}
		words = append(words, tok)
		if len(words) == 4 {
			break
		}
	}
	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

// afterVerb returns the text following the earliest consumption verb.
func afterVerb(lower string) (string, bool) {
	best := -1
	bestLen := 0
	for _, v := range consumptionVerbs {
		if i := strings.Index(lower, v); i >= 0 && (best == -1 || i < best) {
			best = i
			bestLen = len(v)
		}
	}
	if best == -1 {
		return "", false
	}
	return lower[best+bestLen:], true
}

// IsNegativeReply reports whether text, trimmed and lower-cased, is an exact
// member of NegativeReplies.
func IsNegativeReply(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, n := range NegativeReplies {
		if s == n {
			return true
		}
	}
	return false
}

// MentionsMeal reports whether text contains a consumption verb or meal-time
// word. Bare greetings do not qualify.
func MentionsMeal(text string) bool {
	lower := strings.ToLower(text)
	if isGreeting(lower) {
		return false
	}
	for _, w := range mealWords {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

var greetings = []string{"hi", "hello", "hey", "good morning", "good evening"}

func isGreeting(lower string) bool {
	s := strings.TrimRight(strings.TrimSpace(lower), "!. ")
	for _, g := range greetings {
		if s == g {
			return true
		}
	}
	return false
}

// ContainsWord reports whether w occurs as a whole word in text,
// case-insensitively.
func ContainsWord(text, w string) bool {
	return containsWord(strings.ToLower(text), strings.ToLower(w))
}

// containsWord checks for w as a whole word in lower.
func containsWord(lower, w string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isAlnum(lower[start-1])
		afterOK := end == len(lower) || !isAlnum(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}
