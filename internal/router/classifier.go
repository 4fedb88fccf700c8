package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/platewise/platewise/internal/dialog"
	"github.com/platewise/platewise/internal/llm"
)

// DefaultCategories is the category set the classifier chooses from. The
// deployed set is configurable; anything outside it degrades to
// "conversation" at validation time.
var DefaultCategories = []string{
	CategoryAnalyzeMeal,
	CategoryCoaching,
	CategoryWebSearch,
	CategoryRecipe,
	CategoryConversation,
	CategoryClarification,
}

const (
	historyWindow  = 6
	maxHistoryLen  = 1000
	classifySystem = `You are a nutrition assistant coordinator. Your job is to:
1. Understand what the user wants
2. Classify their request into the appropriate category
3. Provide a conversational response that guides them

Categories:
- analyze_meal: User clearly wants to log food with enough detail (e.g., "I had 2 eggs and toast")
- web_search: User mentions specific branded/restaurant food items
- coaching: User wants dietary advice or meal balance suggestions
- recipe_generation: User wants recipe suggestions
- conversation: General chat, greetings, or off-topic
- clarification: User's intent is clear but needs more details (e.g., "I had breakfast" without specifics)

IMPORTANT: Look at the conversation history. If you previously asked for clarification about something:
- If the user provides the requested details, classify based on the original intent + new details
- For example: If you asked "What did you have for breakfast?" and they say "eggs and toast", classify as analyze_meal

Return a JSON object with:
{
  "category": "one of the categories above",
  "response": "Your conversational response to the user",
  "follow_up": "Optional follow-up question if needed"
}

Keep responses short and human. No emojis, no titles.`
)

// Chatter is the chat-completions capability the classifier needs.
// Implemented by llm.Client.
type Chatter interface {
	ChatJSON(ctx context.Context, messages []llm.Message) (string, error)
}

// Classification is the validated classifier output.
type Classification struct {
	Category string `json:"category"`
	Reply    string `json:"response"`
	FollowUp string `json:"follow_up"`
}

// Classifier labels a user turn with one category from a fixed set, using an
// LLM call with the trailing log window as context. Outputs are validated
// against the category set before anything downstream sees them.
type Classifier struct {
	chatter    Chatter
	categories map[string]bool
}

// NewClassifier creates a classifier constrained to the given category set.
// Pass DefaultCategories unless the deployment narrows the set.
func NewClassifier(chatter Chatter, categories []string) *Classifier {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return &Classifier{chatter: chatter, categories: set}
}

// Classify returns a validated Classification for userText given the recent
// log (newest-first). A category outside the configured set is coerced to
// "conversation"; transport or parse failures return an error for the router
// to absorb.
func (c *Classifier) Classify(ctx context.Context, newestFirst []dialog.Message, userText string) (Classification, error) {
	messages := []llm.Message{{Role: "system", Content: classifySystem}}

	history := dialog.Chronological(newestFirst)
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		content := stripMarkup(m.Content)
		if len(content) > maxHistoryLen {
			content = content[:maxHistoryLen]
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: content})
	}
	messages = append(messages, llm.Message{Role: dialog.RoleUser, Content: userText})

	raw, err := c.chatter.ChatJSON(ctx, messages)
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}

	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}

	var result Classification
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return Classification{}, fmt.Errorf("parsing classification: %w", err)
	}

	if !c.categories[result.Category] {
		result.Category = CategoryConversation
	}
	return result, nil
}

// stripMarkup removes HTML tags from stored assistant replies so the
// classifier context is plain text. Non-HTML input passes through unchanged.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(tok.Token().Data)
		}
	}
	return strings.TrimSpace(b.String())
}
