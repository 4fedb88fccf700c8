package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/platewise/platewise/internal/dialog"
)

type memStore struct {
	log       []dialog.Message // newest first
	appended  []dialog.Message
	recentErr error
	appendErr error
}

func (s *memStore) AppendMessage(m dialog.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, m)
	return nil
}

func (s *memStore) RecentMessages(_ string, limit int) ([]dialog.Message, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	if len(s.log) > limit {
		return s.log[:limit], nil
	}
	return s.log, nil
}

type stubClassifier struct {
	result Classification
	err    error
	calls  int
}

func (c *stubClassifier) Classify(_ context.Context, _ []dialog.Message, _ string) (Classification, error) {
	c.calls++
	return c.result, c.err
}

func clarificationLog(item string) []dialog.Message {
	now := time.Now()
	return []dialog.Message{
		{
			Role:    dialog.RoleAssistant,
			Content: "How many grams of " + item + " did you have?",
			Meta: dialog.Metadata{
				Type:            "clarification",
				ClarifyingAbout: dialog.TopicMealLogging,
				ClarifyingItem:  item,
			},
			CreatedAt: now,
		},
		{
			Role:      dialog.RoleUser,
			Content:   "i had " + item + " for breakfast",
			CreatedAt: now.Add(-time.Minute),
		},
	}
}

func TestRoute_ImageAlwaysAnalyzes(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "here is my lunch", true)

	if d.Category != CategoryAnalyzeMeal {
		t.Errorf("category = %q", d.Category)
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times for image turn", cls.calls)
	}
}

func TestRoute_NegativeReplyToClarificationReprompts(t *testing.T) {
	store := &memStore{log: clarificationLog("eggs")}
	cls := &stubClassifier{}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "no", false)

	if d.Category != CategoryClarification {
		t.Errorf("category = %q", d.Category)
	}
	if !d.Handled {
		t.Error("turn should be handled by the router")
	}
	if !strings.Contains(d.Reply, "grams") || !strings.Contains(d.Reply, "eggs") {
		t.Errorf("reply = %q, want grams prompt for eggs", d.Reply)
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times", cls.calls)
	}

	// The re-prompt must stay tagged so the next turn still sees an open
	// clarification for the same item.
	if len(store.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(store.appended))
	}
	reply := store.appended[1]
	if reply.Role != dialog.RoleAssistant || reply.Meta.Type != CategoryClarification {
		t.Errorf("assistant reply meta = %+v", reply.Meta)
	}
	if reply.Meta.ClarifyingAbout != dialog.TopicMealLogging {
		t.Errorf("clarifying_about = %q", reply.Meta.ClarifyingAbout)
	}
	if reply.Meta.ClarifyingItem != "eggs" {
		t.Errorf("clarifying_item = %q, want it preserved across the re-prompt", reply.Meta.ClarifyingItem)
	}
}

func TestRoute_QuantityClosesClarification(t *testing.T) {
	store := &memStore{log: clarificationLog("eggs")}
	cls := &stubClassifier{}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "about 150g", false)

	if d.Category != CategoryAnalyzeMeal {
		t.Errorf("category = %q", d.Category)
	}
	if d.Input != "eggs 150 g" {
		t.Errorf("input = %q, want %q", d.Input, "eggs 150 g")
	}
	if d.Handled {
		t.Error("analyze_meal turns belong to the downstream handler")
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times", cls.calls)
	}
}

func TestRoute_NegativeReplyRecoversUntaggedMention(t *testing.T) {
	// The assistant asked a follow-up without tagging it; the user's prior
	// meal mention still anchors the clarification.
	store := &memStore{log: []dialog.Message{
		{Role: dialog.RoleAssistant, Content: "Anything else with that?"},
		{Role: dialog.RoleUser, Content: "i had oatmeal for breakfast"},
	}}
	cls := &stubClassifier{}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "nope", false)

	if d.Category != CategoryClarification {
		t.Errorf("category = %q", d.Category)
	}
	if !strings.Contains(d.Reply, "oatmeal") {
		t.Errorf("reply = %q, want prompt about oatmeal", d.Reply)
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times", cls.calls)
	}
}

func TestRoute_QuantityWithRecentMentionSkipsClassifier(t *testing.T) {
	store := &memStore{log: []dialog.Message{
		{Role: dialog.RoleAssistant, Content: "Got it. How much was that?"},
		{Role: dialog.RoleUser, Content: "i ate chicken for lunch"},
	}}
	cls := &stubClassifier{}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "200 grams", false)

	if d.Category != CategoryAnalyzeMeal {
		t.Errorf("category = %q", d.Category)
	}
	if d.Input != "chicken 200 g" {
		t.Errorf("input = %q", d.Input)
	}
	if cls.calls != 0 {
		t.Errorf("classifier called %d times", cls.calls)
	}
}

func TestRoute_AnsweredClarificationDoesNotCaptureNextMeal(t *testing.T) {
	// The eggs question was answered and the meal logged. A later message
	// describing a new meal must not be rewritten against the stale eggs
	// item, even though the old question is still inside the log window.
	store := &memStore{log: []dialog.Message{
		{Role: dialog.RoleAssistant, Content: "Logged your meal.", Meta: dialog.Metadata{Type: CategoryAnalyzeMeal}},
		{Role: dialog.RoleUser, Content: "150 g"},
		{
			Role:    dialog.RoleAssistant,
			Content: "How many grams of eggs did you have?",
			Meta: dialog.Metadata{
				Type:            "clarification",
				ClarifyingAbout: dialog.TopicMealLogging,
				ClarifyingItem:  "eggs",
			},
		},
		{Role: dialog.RoleUser, Content: "i had eggs for breakfast"},
	}}
	cls := &stubClassifier{result: Classification{Category: CategoryAnalyzeMeal}}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "I also had 200 g of rice", false)

	if d.Category != CategoryAnalyzeMeal {
		t.Errorf("category = %q", d.Category)
	}
	if d.Input != "I also had 200 g of rice" {
		t.Errorf("input = %q, want the full text, not a rewrite against eggs", d.Input)
	}
	if cls.calls != 1 {
		t.Errorf("classifier called %d times, want 1", cls.calls)
	}
}

func TestRoute_FallsBackToClassifier(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{result: Classification{
		Category: CategoryRecipe,
		Reply:    "Let me put a recipe together.",
	}}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "can you suggest a pasta recipe", false)

	if d.Category != CategoryRecipe {
		t.Errorf("category = %q", d.Category)
	}
	if d.Handled {
		t.Error("recipe turns belong to the downstream handler")
	}
	if d.Reply != "" {
		t.Errorf("reply = %q, want empty for routed categories", d.Reply)
	}
	// Only the user message is appended; the recipe handler owns the reply.
	if len(store.appended) != 1 {
		t.Fatalf("appended %d messages, want 1", len(store.appended))
	}
}

func TestRoute_ClassifierConversationIsHandled(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{result: Classification{
		Category: CategoryConversation,
		Reply:    "Happy to chat about nutrition.",
		FollowUp: "What did you eat today?",
	}}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "hey there", false)

	if !d.Handled {
		t.Error("conversation turns are handled by the router")
	}
	if !strings.Contains(d.Reply, "Happy to chat") || !strings.Contains(d.Reply, "What did you eat") {
		t.Errorf("reply = %q", d.Reply)
	}
	if len(store.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(store.appended))
	}
}

func TestRoute_ClassifierClarificationTagsTopic(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{result: Classification{
		Category: CategoryClarification,
		Reply:    "What did you have for breakfast?",
	}}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "i had breakfast", false)

	if d.Category != CategoryClarification {
		t.Errorf("category = %q", d.Category)
	}
	if len(store.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(store.appended))
	}
	meta := store.appended[1].Meta
	if meta.ClarifyingAbout != dialog.TopicMealLogging {
		t.Errorf("clarifying_about = %q", meta.ClarifyingAbout)
	}
	if meta.ClarifyingItem != "breakfast" {
		t.Errorf("clarifying_item = %q", meta.ClarifyingItem)
	}
}

func TestRoute_RecipeCueSetsRecipeTopic(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{result: Classification{
		Category: CategoryClarification,
		Reply:    "What kind of recipe are you after?",
	}}
	r := New(store, cls)

	r.Route(context.Background(), "s1", "can you cook something up for me", false)

	if len(store.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(store.appended))
	}
	if got := store.appended[1].Meta.ClarifyingAbout; got != dialog.TopicRecipe {
		t.Errorf("clarifying_about = %q", got)
	}
}

func TestRoute_ClassifierErrorFallsBackToConversation(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{err: errors.New("upstream timeout")}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "tell me something", false)

	if d.Category != CategoryConversation {
		t.Errorf("category = %q", d.Category)
	}
	if !d.Handled || d.Reply == "" {
		t.Errorf("fallback must still answer the user, got %+v", d)
	}
}

func TestRoute_StoreFailuresNeverFailTheTurn(t *testing.T) {
	store := &memStore{
		recentErr: errors.New("db locked"),
		appendErr: errors.New("db locked"),
	}
	cls := &stubClassifier{result: Classification{Category: CategoryConversation, Reply: "hi"}}
	r := New(store, cls)

	d := r.Route(context.Background(), "s1", "hello", false)

	if d.Category != CategoryConversation {
		t.Errorf("category = %q", d.Category)
	}
}

func TestRoute_AppendedMessagesCarryIdentity(t *testing.T) {
	store := &memStore{}
	cls := &stubClassifier{result: Classification{Category: CategoryConversation, Reply: "hi"}}
	r := New(store, cls)

	r.Route(context.Background(), "s42", "hello there friend", false)

	for _, m := range store.appended {
		if m.ID == "" {
			t.Error("message appended without an id")
		}
		if m.SessionID != "s42" {
			t.Errorf("session_id = %q", m.SessionID)
		}
		if m.CreatedAt.IsZero() {
			t.Error("message appended without a timestamp")
		}
	}
}
