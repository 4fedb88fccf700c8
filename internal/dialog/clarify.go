package dialog

import "github.com/platewise/platewise/internal/extract"

// Clarification is the derived view of the most recent open clarification.
// It is never stored: the router recomputes it from the log every turn.
type Clarification struct {
	Topic         Topic
	Item          string // anchor item the question was about, if recoverable
	PriorUserText string // nearest user message before the question
}

// Open reports whether a clarification question is actually pending.
func (c Clarification) Open() bool {
	return c.Topic != TopicNone
}

// LastClarification scans log (newest-first) for the most recent assistant
// message and, if it is tagged as a clarification, returns its stored topic
// and item along with the nearest user message preceding it. The scan stops
// at the first assistant message either way: a newer non-clarification
// assistant turn means any older clarification was already answered, so it
// must not be treated as pending. Returns a zero Clarification when nothing
// is open.
func LastClarification(newestFirst []Message) Clarification {
	for i, m := range newestFirst {
		if m.Role != RoleAssistant {
			continue
		}
		if !m.IsClarification() {
			return Clarification{}
		}

		c := Clarification{
			Topic: m.Meta.ClarifyingAbout,
			Item:  m.Meta.ClarifyingItem,
		}
		if c.Topic == TopicNone {
			// Tagged as clarification but topic metadata was lost;
			// treat as a meal-logging question, the dominant case.
			c.Topic = TopicMealLogging
		}

		// Walk further back for the user message being clarified.
		for _, prior := range newestFirst[i+1:] {
			if prior.Role == RoleUser {
				c.PriorUserText = prior.Content
				break
			}
		}

		// Recover the anchor item from the prior user text when the
		// question itself did not record one.
		if c.Item == "" && c.PriorUserText != "" {
			if phrase, ok := extract.ItemPhrase(c.PriorUserText); ok {
				c.Item = phrase
			}
		}
		return c
	}
	return Clarification{}
}

// FindRecentItemMention scans log (newest-first) for a user message that is
// not a bare greeting and mentions a meal, then returns the item phrase from
// the first such message. Used to recover continuity when the prior turn was
// never formally tagged as a clarification.
func FindRecentItemMention(newestFirst []Message) (string, bool) {
	for _, m := range newestFirst {
		if m.Role != RoleUser {
			continue
		}
		if !extract.MentionsMeal(m.Content) {
			continue
		}
		return extract.ItemPhrase(m.Content)
	}
	return "", false
}
