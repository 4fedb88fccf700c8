package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/platewise/platewise/internal/llm"
	"github.com/platewise/platewise/internal/meals"
	"github.com/platewise/platewise/internal/storage"
	"github.com/platewise/platewise/internal/textnorm"
)

type stubChatter struct {
	resp string
	err  error
}

func (s *stubChatter) ChatJSON(_ context.Context, _ []llm.Message) (string, error) {
	return s.resp, s.err
}

type stubCreator struct {
	created map[string]int64
	err     error
	got     []string
}

func (s *stubCreator) CreateMissing(_ context.Context, names []string) (map[string]int64, error) {
	s.got = names
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func newTestAnalyzer(t *testing.T, chatter Chatter, creator Creator) (*Analyzer, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(chatter, store, creator, meals.NewService(store)), store
}

func seedIngredient(t *testing.T, store *storage.Store, name string, calories float64) int64 {
	t.Helper()
	var id int64
	err := store.InCatalogTx(context.Background(), func(tx *storage.CatalogTx) error {
		var err error
		id, err = tx.InsertIngredient(name, calories, 10, 10, 5, storage.ReferenceMass)
		return err
	})
	if err != nil {
		t.Fatalf("seeding %s: %v", name, err)
	}
	return id
}

func TestAnalyze_MatchesExistingIngredients(t *testing.T) {
	chatter := &stubChatter{
		resp: `{"reply":"Logged two eggs.","items":[{"ingredient_name":"Eggs","grams":150}]}`,
	}
	creator := &stubCreator{}
	a, store := newTestAnalyzer(t, chatter, creator)
	eggsID := seedIngredient(t, store, "Eggs", 155)

	res, err := a.Analyze(context.Background(), "s1", "eggs 150 g", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Items[0].IngredientID != eggsID {
		t.Errorf("ingredient_id = %d, want %d", res.Items[0].IngredientID, eggsID)
	}
	if creator.got != nil {
		t.Errorf("creator called for known ingredient: %v", creator.got)
	}
	if res.Meal.Calories != 232.5 {
		t.Errorf("meal calories = %v, want 232.5", res.Meal.Calories)
	}

	saved, err := store.MealsForDate(res.Meal.Date)
	if err != nil || len(saved) != 1 {
		t.Fatalf("meal not persisted: %v (%d rows)", err, len(saved))
	}
}

func TestAnalyze_CreatesUnknownIngredients(t *testing.T) {
	chatter := &stubChatter{
		resp: `{"reply":"ok","items":[{"ingredient_name":"Dragonfruit","grams":100}]}`,
	}
	creator := &stubCreator{created: map[string]int64{textnorm.Normalize("Dragonfruit"): 7}}
	a, _ := newTestAnalyzer(t, chatter, creator)

	res, err := a.Analyze(context.Background(), "s1", "i had dragonfruit", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(creator.got) != 1 || creator.got[0] != "Dragonfruit" {
		t.Errorf("creator got %v", creator.got)
	}
	if res.Items[0].IngredientID != 7 {
		t.Errorf("ingredient_id = %d, want 7", res.Items[0].IngredientID)
	}
}

func TestAnalyze_CreationFailureFailsRequest(t *testing.T) {
	chatter := &stubChatter{
		resp: `{"reply":"ok","items":[{"ingredient_name":"Dragonfruit","grams":100}]}`,
	}
	creator := &stubCreator{err: errors.New("commit failed")}
	a, _ := newTestAnalyzer(t, chatter, creator)

	if _, err := a.Analyze(context.Background(), "s1", "dragonfruit", ""); err == nil {
		t.Fatal("expected error when the creation batch fails")
	}
}

func TestAnalyze_DropsInvalidItems(t *testing.T) {
	chatter := &stubChatter{
		resp: `{"reply":"ok","items":[
			{"ingredient_name":"","grams":100},
			{"ingredient_name":"Eggs","grams":0},
			{"ingredient_name":"Eggs","grams":-5}
		]}`,
	}
	a, _ := newTestAnalyzer(t, chatter, &stubCreator{})

	res, err := a.Analyze(context.Background(), "s1", "something", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %+v, want none", res.Items)
	}
	if res.Reply == "" {
		t.Error("empty result still needs a reply asking for details")
	}
}

func TestAnalyze_ParserErrorPropagates(t *testing.T) {
	a, _ := newTestAnalyzer(t, &stubChatter{err: errors.New("upstream down")}, &stubCreator{})

	if _, err := a.Analyze(context.Background(), "s1", "eggs", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnalyze_UncreatableItemKeptWithoutID(t *testing.T) {
	chatter := &stubChatter{
		resp: `{"reply":"ok","items":[{"ingredient_name":"Mystery Stew","grams":250}]}`,
	}
	// Creation batch succeeds but produced nothing for this name.
	creator := &stubCreator{created: map[string]int64{}}
	a, _ := newTestAnalyzer(t, chatter, creator)

	res, err := a.Analyze(context.Background(), "s1", "mystery stew", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].IngredientID != 0 {
		t.Errorf("items = %+v, want one id-less item", res.Items)
	}
	if res.Meal.Calories != 0 {
		t.Errorf("meal calories = %v, want 0 for unresolved item", res.Meal.Calories)
	}
}
