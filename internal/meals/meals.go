// Package meals owns nutrition arithmetic and meal persistence: weighted
// macro sums at each ingredient's reference mass, daily summaries grouped by
// meal type, and the favorite-meal lookup.
package meals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/storage"
)

// Meal types with prepopulated summary groups.
var mealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

// Nutrition is a macro total in calories and grams.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (n *Nutrition) add(o Nutrition) {
	n.Calories += o.Calories
	n.Protein += o.Protein
	n.Carbs += o.Carbs
	n.Fat += o.Fat
}

func (n *Nutrition) round() {
	n.Calories = round2(n.Calories)
	n.Protein = round2(n.Protein)
	n.Carbs = round2(n.Carbs)
	n.Fat = round2(n.Fat)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Store is the persistence capability the meal service needs.
// Implemented by storage.Store.
type Store interface {
	SaveMeal(m storage.Meal) error
	MealsForDate(date string) ([]storage.Meal, error)
	FavoriteMeal() (string, int, error)
	IngredientsByID(ids []int64) (map[int64]storage.Ingredient, error)
}

// Service computes meal nutrition and persists logged meals.
type Service struct {
	store Store
}

// NewService creates a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Compute sums the macro contribution of each item: value scaled by grams
// over the ingredient's reference mass. Items whose ingredient is missing
// from byID contribute nothing.
func Compute(items []storage.MealItem, byID map[int64]storage.Ingredient) Nutrition {
	var total Nutrition
	for _, it := range items {
		ing, ok := byID[it.IngredientID]
		if !ok {
			continue
		}
		unit := ing.UnitWeight
		if unit == 0 {
			unit = storage.ReferenceMass
		}
		total.add(Nutrition{
			Calories: ing.Calories * it.Grams / unit,
			Protein:  ing.Protein * it.Grams / unit,
			Carbs:    ing.Carbs * it.Grams / unit,
			Fat:      ing.Fat * it.Grams / unit,
		})
	}
	return total
}

// Log computes totals for the given items and persists the meal. Items whose
// ingredient could not be resolved are stored as-is but contribute nothing
// to the totals.
func (s *Service) Log(sessionID, name, mealType string, items []storage.MealItem) (storage.Meal, error) {
	var ids []int64
	for _, it := range items {
		if it.IngredientID != 0 {
			ids = append(ids, it.IngredientID)
		}
	}
	byID, err := s.store.IngredientsByID(ids)
	if err != nil {
		return storage.Meal{}, fmt.Errorf("loading ingredients: %w", err)
	}

	total := Compute(items, byID)
	total.round()

	now := time.Now()
	m := storage.Meal{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Name:      name,
		MealType:  mealType,
		Date:      now.Format("2006-01-02"),
		Items:     items,
		Calories:  total.Calories,
		Protein:   total.Protein,
		Carbs:     total.Carbs,
		Fat:       total.Fat,
		CreatedAt: now,
	}
	if err := s.store.SaveMeal(m); err != nil {
		return storage.Meal{}, fmt.Errorf("saving meal: %w", err)
	}
	return m, nil
}

// DailySummary groups a date's meals by meal type. The four standard types
// and "total" are always present, zero-valued when empty; unknown types get
// their own group and still count toward the total.
func (s *Service) DailySummary(date string) (map[string]Nutrition, error) {
	logged, err := s.store.MealsForDate(date)
	if err != nil {
		return nil, fmt.Errorf("loading meals for %s: %w", date, err)
	}

	summary := make(map[string]Nutrition, len(mealTypes)+1)
	for _, t := range mealTypes {
		summary[t] = Nutrition{}
	}
	for _, m := range logged {
		g := summary[m.MealType]
		g.add(Nutrition{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat})
		summary[m.MealType] = g
	}

	var total Nutrition
	for t, g := range summary {
		total.add(g)
		g.round()
		summary[t] = g
	}
	total.round()
	summary["total"] = total
	return summary, nil
}

// Favorite returns the most frequently logged meal name and its count.
// Returns storage.ErrNotFound when nothing has been logged.
func (s *Service) Favorite() (string, int, error) {
	return s.store.FavoriteMeal()
}

// InferMealType guesses the meal type from the hour of day.
func InferMealType(t time.Time) string {
	switch h := t.Hour(); {
	case h < 11:
		return "breakfast"
	case h < 15:
		return "lunch"
	case h < 21:
		return "dinner"
	default:
		return "snack"
	}
}
