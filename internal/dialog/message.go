// Package dialog defines the conversation log model and the pure functions
// that reconstruct dialogue state from it. The log is the only cross-turn
// state in the system: there is no session object, so every turn starts by
// re-deriving what is pending from a bounded suffix of the log.
package dialog

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Topic identifies what an open clarification is about.
type Topic string

const (
	TopicNone        Topic = ""
	TopicMealLogging Topic = "meal_logging"
	TopicRecipe      Topic = "recipe"
	TopicCoaching    Topic = "coaching"
)

// Metadata is the structured payload attached to a message. Stored as JSON
// text alongside the message row; never mutated after the message is saved.
type Metadata struct {
	Type            string `json:"type,omitempty"`
	ClarifyingAbout Topic  `json:"clarifying_about,omitempty"`
	ClarifyingItem  string `json:"clarifying_item,omitempty"`
	HasImage        bool   `json:"has_image,omitempty"`

	// Items carries the structured result of a meal analysis, if any.
	Items []LoggedItem `json:"items,omitempty"`
}

// LoggedItem is one resolved ingredient reference recorded on a message.
type LoggedItem struct {
	IngredientID   int64   `json:"ingredient_id,omitempty"`
	IngredientName string  `json:"ingredient_name"`
	Grams          float64 `json:"grams"`
}

// Message is one turn in a session's conversation log. Append-only.
type Message struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	Category  string
	Meta      Metadata
	CreatedAt time.Time
}

// IsClarification reports whether m is an assistant message tagged as an
// open clarification question.
func (m Message) IsClarification() bool {
	return m.Role == RoleAssistant &&
		(m.Meta.Type == "clarification" || m.Category == "clarification")
}

// Chronological returns a copy of msgs in the opposite order. Storage hands
// out logs newest-first (the natural order for a LIMIT window); callers that
// need oldest-first context, like classifier prompts, flip them here.
func Chronological(newestFirst []Message) []Message {
	out := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out
}
