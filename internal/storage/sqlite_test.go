package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/dialog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations(t *testing.T) {
	s := openTestStore(t)
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if n == 0 {
		t.Error("no migrations recorded")
	}
}

func TestAppendAndRecentMessages(t *testing.T) {
	s := openTestStore(t)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		err := s.AppendMessage(dialog.Message{
			ID:        uuid.New().String(),
			SessionID: "sess-1",
			Role:      dialog.RoleUser,
			Content:   c,
		})
		if err != nil {
			t.Fatalf("AppendMessage(%q): %v", c, err)
		}
	}

	got, err := s.RecentMessages("sess-1", 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	// Newest first.
	if got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("order wrong: %q, %q", got[0].Content, got[1].Content)
	}

	// Other sessions are isolated.
	other, err := s.RecentMessages("sess-2", 10)
	if err != nil {
		t.Fatalf("RecentMessages(sess-2): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty log for other session, got %d", len(other))
	}
}

func TestMessageMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := dialog.Message{
		ID:        uuid.New().String(),
		SessionID: "sess-1",
		Role:      dialog.RoleAssistant,
		Content:   "How many grams of eggs?",
		Category:  "clarification",
		Meta: dialog.Metadata{
			Type:            "clarification",
			ClarifyingAbout: dialog.TopicMealLogging,
			ClarifyingItem:  "eggs",
		},
	}
	if err := s.AppendMessage(in); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	got, err := s.RecentMessages("sess-1", 1)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if got[0].Meta.ClarifyingAbout != dialog.TopicMealLogging || got[0].Meta.ClarifyingItem != "eggs" {
		t.Errorf("metadata lost: %+v", got[0].Meta)
	}
	if !got[0].IsClarification() {
		t.Error("stored clarification not recognized")
	}
}

func TestClearMessages(t *testing.T) {
	s := openTestStore(t)
	for _, sess := range []string{"a", "b"} {
		if err := s.AppendMessage(dialog.Message{ID: uuid.New().String(), SessionID: sess, Role: dialog.RoleUser, Content: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.ClearMessages("a"); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}
	a, _ := s.RecentMessages("a", 10)
	b, _ := s.RecentMessages("b", 10)
	if len(a) != 0 || len(b) != 1 {
		t.Errorf("clear leaked: a=%d b=%d", len(a), len(b))
	}
}

func TestCatalogInsertAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var id int64
	err := s.InCatalogTx(ctx, func(tx *CatalogTx) error {
		var err error
		id, err = tx.InsertIngredient("Chicken Breast", 165, 31, 0, 3.6, ReferenceMass)
		return err
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	names, ids, err := s.IngredientNamesAndIDs()
	if err != nil {
		t.Fatalf("IngredientNamesAndIDs: %v", err)
	}
	if len(names) != 1 || names[0] != "Chicken Breast" || ids[0] != id {
		t.Errorf("catalog index wrong: %v %v", names, ids)
	}

	err = s.InCatalogTx(ctx, func(tx *CatalogTx) error {
		got, found, err := tx.FindByExactName("chicken breast")
		if err != nil {
			return err
		}
		if !found || got != id {
			t.Errorf("case-insensitive lookup = (%d, %v), want (%d, true)", got, found, id)
		}
		_, found, err = tx.FindByExactName("Tofu")
		if err != nil {
			return err
		}
		if found {
			t.Error("found nonexistent ingredient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestCatalogTxRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InCatalogTx(ctx, func(tx *CatalogTx) error {
		if _, err := tx.InsertIngredient("Dragonfruit", 60, 1.2, 13, 0.4, ReferenceMass); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	names, _, err := s.IngredientNamesAndIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("rollback leaked rows: %v", names)
	}
}

func TestSeedIngredients_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seed := []Ingredient{
		{Name: "Olive Oil", Calories: 884, Fat: 100},
		{Name: "Egg", Calories: 155, Protein: 13, Carbs: 1.1, Fat: 11},
	}
	n, err := s.SeedIngredients(ctx, seed)
	if err != nil || n != 2 {
		t.Fatalf("first seed = (%d, %v), want (2, nil)", n, err)
	}
	n, err = s.SeedIngredients(ctx, seed)
	if err != nil || n != 0 {
		t.Fatalf("second seed = (%d, %v), want (0, nil)", n, err)
	}
}

func TestMealsForDateAndFavorite(t *testing.T) {
	s := openTestStore(t)

	meals := []Meal{
		{ID: uuid.New().String(), Name: "Omelette", MealType: "breakfast", Date: "2026-08-30", Calories: 300, Items: []MealItem{{IngredientID: 1, IngredientName: "Egg", Grams: 120}}},
		{ID: uuid.New().String(), Name: "Omelette", MealType: "breakfast", Date: "2026-08-31", Calories: 310},
		{ID: uuid.New().String(), Name: "Salad", MealType: "lunch", Date: "2026-08-31", Calories: 150},
	}
	for _, m := range meals {
		if err := s.SaveMeal(m); err != nil {
			t.Fatalf("SaveMeal: %v", err)
		}
	}

	got, err := s.MealsForDate("2026-08-31")
	if err != nil {
		t.Fatalf("MealsForDate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d meals, want 2", len(got))
	}

	withItems, err := s.MealsForDate("2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(withItems) != 1 || len(withItems[0].Items) != 1 || withItems[0].Items[0].IngredientName != "Egg" {
		t.Errorf("items round trip failed: %+v", withItems)
	}

	name, count, err := s.FavoriteMeal()
	if err != nil {
		t.Fatalf("FavoriteMeal: %v", err)
	}
	if name != "Omelette" || count != 2 {
		t.Errorf("FavoriteMeal = (%q, %d), want (Omelette, 2)", name, count)
	}
}

func TestFavoriteMeal_Empty(t *testing.T) {
	s := openTestStore(t)
	if _, _, err := s.FavoriteMeal(); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
