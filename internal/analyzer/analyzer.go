// Package analyzer owns the analyze_meal category: it extracts structured
// ingredient/grams items from a turn, resolves them against the catalog,
// creates whatever is missing, and logs the meal.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/platewise/platewise/internal/llm"
	"github.com/platewise/platewise/internal/meals"
	"github.com/platewise/platewise/internal/resolve"
	"github.com/platewise/platewise/internal/storage"
	"github.com/platewise/platewise/internal/textnorm"
)

// matchCutoff is the similarity floor for mapping an extracted name onto an
// existing catalog row. High on purpose: a wrong match silently corrupts
// totals, a miss only costs one creation call.
const matchCutoff = 95

const parserSystemPrompt = `You are a nutrition parser that extracts ingredients and weights.
Return ONLY valid JSON with this schema:
{
  "reply": "short confirmation of what was understood",
  "items": [
    { "ingredient_name": "string", "grams": number }
  ]
}
Units: grams only. If user gives pieces/cups, convert to grams. Be conservative when unsure.
Do not include any extra keys. Ensure JSON is strictly valid.`

// Chatter is the chat-completions capability the parser needs.
// Implemented by llm.Client.
type Chatter interface {
	ChatJSON(ctx context.Context, messages []llm.Message) (string, error)
}

// Catalog lists the current ingredient index.
// Implemented by storage.Store.
type Catalog interface {
	IngredientNamesAndIDs() ([]string, []int64, error)
}

// Creator stages catalog rows for names that failed matching.
// Implemented by resolve.Creator.
type Creator interface {
	CreateMissing(ctx context.Context, unknownNames []string) (map[string]int64, error)
}

// MealLog persists a finished meal with computed totals.
// Implemented by meals.Service.
type MealLog interface {
	Log(sessionID, name, mealType string, items []storage.MealItem) (storage.Meal, error)
}

// Result is the outcome of one meal analysis.
type Result struct {
	Reply string
	Items []storage.MealItem
	Meal  storage.Meal
}

// Analyzer turns free text or an image into a logged meal.
type Analyzer struct {
	chatter Chatter
	catalog Catalog
	creator Creator
	mealLog MealLog
	logger  *slog.Logger
}

// New creates an Analyzer from its collaborators.
func New(chatter Chatter, catalog Catalog, creator Creator, mealLog MealLog) *Analyzer {
	return &Analyzer{
		chatter: chatter,
		catalog: catalog,
		creator: creator,
		mealLog: mealLog,
		logger:  slog.Default(),
	}
}

// parsedMeal mirrors the parser's JSON contract.
type parsedMeal struct {
	Reply string `json:"reply"`
	Items []struct {
		IngredientName string  `json:"ingredient_name"`
		Grams          float64 `json:"grams"`
	} `json:"items"`
}

// Analyze extracts items from input (and optionally an image), resolves them
// to catalog ids, creates unknowns, and logs the meal. A failed creation
// batch fails the whole request; an individually unresolvable item is kept
// in the result without an id.
func (a *Analyzer) Analyze(ctx context.Context, sessionID, input, imageURL string) (Result, error) {
	parsed, err := a.parse(ctx, input, imageURL)
	if err != nil {
		return Result{}, err
	}

	items := make([]storage.MealItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		name := strings.TrimSpace(it.IngredientName)
		if name == "" || it.Grams <= 0 {
			continue
		}
		items = append(items, storage.MealItem{IngredientName: name, Grams: it.Grams})
	}
	if len(items) == 0 {
		return Result{Reply: "I couldn't identify specific ingredients. Could you provide more details about what you ate?"}, nil
	}

	if err := a.resolveItems(ctx, items); err != nil {
		return Result{}, err
	}

	name := mealName(input)
	meal, err := a.mealLog.Log(sessionID, name, meals.InferMealType(time.Now()), items)
	if err != nil {
		return Result{}, fmt.Errorf("logging meal: %w", err)
	}

	reply := parsed.Reply
	if reply == "" {
		reply = "Logged your meal."
	}
	return Result{Reply: reply, Items: items, Meal: meal}, nil
}

func (a *Analyzer) parse(ctx context.Context, input, imageURL string) (parsedMeal, error) {
	raw, err := a.chatter.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: parserSystemPrompt},
		{Role: "user", Content: input, ImageURL: imageURL},
	})
	if err != nil {
		return parsedMeal{}, fmt.Errorf("parsing meal: %w", err)
	}

	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return parsedMeal{}, fmt.Errorf("parsing meal: %w", err)
	}

	var parsed parsedMeal
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return parsedMeal{}, fmt.Errorf("parsing meal items: %w", err)
	}
	return parsed, nil
}

// resolveItems fills ingredient ids in place: fuzzy match first, then one
// creation batch for everything that missed. Names the batch could not
// create stay id-less.
func (a *Analyzer) resolveItems(ctx context.Context, items []storage.MealItem) error {
	names, ids, err := a.catalog.IngredientNamesAndIDs()
	if err != nil {
		return fmt.Errorf("loading ingredient index: %w", err)
	}

	var unknown []string
	for i := range items {
		if id, ok := resolve.Match(items[i].IngredientName, names, ids, matchCutoff); ok {
			items[i].IngredientID = id
			continue
		}
		unknown = append(unknown, items[i].IngredientName)
	}
	if len(unknown) == 0 {
		return nil
	}

	a.logger.Info("creating nutrition cards for unknown ingredients", "names", unknown)
	created, err := a.creator.CreateMissing(ctx, unknown)
	if err != nil {
		return fmt.Errorf("creating ingredients: %w", err)
	}

	for i := range items {
		if items[i].IngredientID != 0 {
			continue
		}
		if id, ok := created[textnorm.Normalize(items[i].IngredientName)]; ok {
			items[i].IngredientID = id
		}
	}
	return nil
}

// mealName derives a short display name from the raw input.
func mealName(input string) string {
	name := strings.TrimSpace(input)
	if name == "" {
		return "meal"
	}
	if len(name) > 80 {
		name = strings.TrimSpace(name[:80])
	}
	return name
}
