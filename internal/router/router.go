// Package router decides what to do with each incoming user turn. It is an
// ordered decision list: deterministic short-circuit rules run first, backed
// by a probabilistic classifier that can fail without breaking the dialogue.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/dialog"
	"github.com/platewise/platewise/internal/extract"
)

// Routing categories.
const (
	CategoryAnalyzeMeal   = "analyze_meal"
	CategoryCoaching      = "coaching"
	CategoryWebSearch     = "web_search"
	CategoryRecipe        = "recipe_generation"
	CategoryConversation  = "conversation"
	CategoryClarification = "clarification"
)

// logWindow is how many recent messages the router reads to reconstruct
// dialogue state. The log is unbounded; state only ever depends on this
// suffix.
const logWindow = 10

// LogStore is the conversation-log capability the router needs.
// Implemented by storage.Store.
type LogStore interface {
	AppendMessage(m dialog.Message) error
	RecentMessages(sessionID string, limit int) ([]dialog.Message, error)
}

// IntentClassifier labels a turn given recent log context.
// Implemented by Classifier.
type IntentClassifier interface {
	Classify(ctx context.Context, newestFirst []dialog.Message, userText string) (Classification, error)
}

// Decision is the outcome of routing one user turn.
type Decision struct {
	// Category the turn resolved to.
	Category string
	// Input is the text the downstream handler should work from. Usually
	// the raw user text; rewritten to a self-contained "{item} {grams} g"
	// when a quantity answers an open clarification.
	Input string
	// Reply is the assistant response when the router resolved the turn
	// itself (conversation and clarification categories). Empty when a
	// downstream handler owns the response.
	Reply string
	// Handled reports whether Reply is the final response for this turn.
	Handled bool

	// Topic and item carried into the assistant reply's metadata when the
	// turn keeps a clarification open.
	clarifyTopic dialog.Topic
	clarifyItem  string
}

// Router reconstructs dialogue state from the session log each turn and
// routes the message. It holds no per-session state: everything it knows it
// re-derives from the log, so concurrent sessions share nothing but the
// store.
type Router struct {
	store      LogStore
	classifier IntentClassifier
	logger     *slog.Logger
}

// New creates a Router over the given log store and classifier.
func New(store LogStore, classifier IntentClassifier) *Router {
	return &Router{
		store:      store,
		classifier: classifier,
		logger:     slog.Default(),
	}
}

// Route decides what to do with one user turn. It always appends the user
// message to the log, plus the assistant reply for turns it resolves itself,
// before returning. Appends are best-effort: a store failure degrades future
// context but never fails the turn.
func (r *Router) Route(ctx context.Context, sessionID, userText string, hasImage bool) Decision {
	log, err := r.store.RecentMessages(sessionID, logWindow)
	if err != nil {
		r.logger.Warn("reading session log failed, routing without context",
			"session_id", sessionID, "error", err)
		log = nil
	}

	d := r.decide(ctx, log, userText, hasImage)

	r.append(dialog.Message{
		SessionID: sessionID,
		Role:      dialog.RoleUser,
		Content:   userText,
		Category:  d.Category,
		Meta:      dialog.Metadata{HasImage: hasImage},
	})
	if d.Handled {
		r.append(dialog.Message{
			SessionID: sessionID,
			Role:      dialog.RoleAssistant,
			Content:   d.Reply,
			Category:  d.Category,
			Meta:      d.replyMeta(userText),
		})
	}
	return d
}

// decide evaluates the transition rules in order; first match wins.
func (r *Router) decide(ctx context.Context, log []dialog.Message, userText string, hasImage bool) Decision {
	// Images are always unambiguous intent to log.
	if hasImage {
		return Decision{Category: CategoryAnalyzeMeal, Input: userText}
	}

	cl := dialog.LastClarification(log)
	awaitingQuantity := cl.Open() && cl.Topic == dialog.TopicMealLogging && cl.Item != ""

	if awaitingQuantity {
		// "no" to a pending quantity question: re-prompt explicitly,
		// no classifier round trip.
		if extract.IsNegativeReply(userText) {
			return Decision{
				Category:     CategoryClarification,
				Input:        userText,
				Reply:        quantityPrompt(cl.Item),
				Handled:      true,
				clarifyTopic: dialog.TopicMealLogging,
				clarifyItem:  cl.Item,
			}
		}
		// A quantity closes the clarification: hand the analyzer a
		// self-contained request.
		if grams, ok := extract.Quantity(userText); ok {
			return Decision{
				Category: CategoryAnalyzeMeal,
				Input:    rewriteItemGrams(cl.Item, grams),
			}
		}
	}

	if !cl.Open() {
		// Continuity recovery: the prior turn mentioned a meal but was
		// never formally tagged as a clarification.
		if extract.IsNegativeReply(userText) {
			if item, ok := dialog.FindRecentItemMention(log); ok {
				return Decision{
					Category:     CategoryClarification,
					Input:        userText,
					Reply:        quantityPrompt(item),
					Handled:      true,
					clarifyTopic: dialog.TopicMealLogging,
					clarifyItem:  item,
				}
			}
		}
		// A bare quantity resumes the most recent mention. A message that
		// itself describes a meal ("I also had 200 g of rice") carries its
		// own item and must reach the classifier with its full text.
		if grams, ok := extract.Quantity(userText); ok && !extract.MentionsMeal(userText) {
			if item, ok := dialog.FindRecentItemMention(log); ok {
				return Decision{
					Category: CategoryAnalyzeMeal,
					Input:    rewriteItemGrams(item, grams),
				}
			}
		}
	}

	result, err := r.classifier.Classify(ctx, log, userText)
	if err != nil {
		// The classifier must never cause a dead-end: degrade to plain
		// conversation so the user always gets a next step.
		r.logger.Warn("classification failed, falling back to conversation", "error", err)
		return Decision{
			Category: CategoryConversation,
			Input:    userText,
			Reply:    "I'm here to help with your nutrition needs. Could you tell me more about what you'd like to do?",
			Handled:  true,
		}
	}

	d := Decision{Category: result.Category, Input: userText, Reply: result.Reply}
	if result.FollowUp != "" {
		d.Reply += "\n" + result.FollowUp
	}
	switch result.Category {
	case CategoryConversation, CategoryClarification:
		d.Handled = true
	default:
		// A specialized handler owns the response; the classifier's
		// conversational reply is dropped.
		d.Reply = ""
	}
	return d
}

// replyMeta builds the metadata for a router-owned assistant reply. For
// clarifications it records the topic and anchor item so the next turn can
// reconstruct the pending question from the log alone.
func (d Decision) replyMeta(userText string) dialog.Metadata {
	if d.Category != CategoryClarification {
		return dialog.Metadata{Type: d.Category}
	}

	meta := dialog.Metadata{
		Type:            CategoryClarification,
		ClarifyingAbout: d.clarifyTopic,
		ClarifyingItem:  d.clarifyItem,
	}
	if meta.ClarifyingAbout == dialog.TopicNone {
		meta.ClarifyingAbout = clarificationTopic(userText)
	}
	if meta.ClarifyingItem == "" {
		if item, ok := extract.ItemPhrase(userText); ok {
			meta.ClarifyingItem = item
		}
	}
	return meta
}

// clarificationTopic infers what a clarification question is about from
// lexical cues in the user's message.
func clarificationTopic(userText string) dialog.Topic {
	switch {
	case containsAny(userText, "breakfast", "lunch", "dinner", "ate", "had"):
		return dialog.TopicMealLogging
	case containsAny(userText, "recipe", "cook", "make"):
		return dialog.TopicRecipe
	case containsAny(userText, "advice", "healthy", "diet"):
		return dialog.TopicCoaching
	default:
		return dialog.TopicMealLogging
	}
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if extract.ContainsWord(text, w) {
			return true
		}
	}
	return false
}

func quantityPrompt(item string) string {
	return fmt.Sprintf("No problem. Roughly how many grams of %s did you have?", item)
}

func rewriteItemGrams(item string, grams float64) string {
	return item + " " + strconv.FormatFloat(grams, 'f', -1, 64) + " g"
}

func (r *Router) append(m dialog.Message) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if err := r.store.AppendMessage(m); err != nil {
		r.logger.Warn("appending message failed, future turns lose this context",
			"session_id", m.SessionID, "role", m.Role, "error", err)
	}
}
