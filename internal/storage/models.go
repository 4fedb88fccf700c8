package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ReferenceMass is the fixed mass, in grams, that every ingredient's macro
// profile is expressed per. All creation paths insert at this mass.
const ReferenceMass = 100.0

// Ingredient is one canonical catalog row. Macro values are per UnitWeight
// grams of the ingredient.
type Ingredient struct {
	ID         int64
	Name       string
	Calories   float64
	Protein    float64
	Carbs      float64
	Fat        float64
	UnitWeight float64
	CreatedAt  time.Time
}

// MealItem is one ingredient reference within a logged meal.
type MealItem struct {
	IngredientID   int64   `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Grams          float64 `json:"grams"`
}

// Meal is one logged meal with its computed nutrition totals.
type Meal struct {
	ID        string
	SessionID string
	Name      string
	MealType  string // "breakfast", "lunch", "dinner", "snack"
	Date      string // YYYY-MM-DD
	Items     []MealItem
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	CreatedAt time.Time
}
