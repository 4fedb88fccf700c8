package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platewise/platewise/internal/resolve"
)

const nutritionSystemPrompt = `You create compact nutrition cards.
You must output ONLY valid JSON with:
{
  "ingredient_name": "string",
  "unit_weight": 100,
  "per_100g": {
    "calories": number,
    "protein": number,
    "carbs": number,
    "fat": number
  }
}
Rules:
- Values are for 100 g edible portion (cooked/raw as commonly consumed).
- Use globally typical values; if branded/unique, infer from public norms.
- No extra keys or text. JSON ONLY.`

// Chatter is the chat-completions capability NutritionGenerator needs.
// Implemented by Client.
type Chatter interface {
	ChatJSON(ctx context.Context, messages []Message) (string, error)
}

// NutritionGenerator asks the model for a macro profile per 100 g and
// validates it before handing it to the resolution engine. It satisfies
// resolve.Generator.
type NutritionGenerator struct {
	client Chatter
}

// NewNutritionGenerator creates a generator backed by the given client.
func NewNutritionGenerator(client Chatter) *NutritionGenerator {
	return &NutritionGenerator{client: client}
}

// nutritionCard mirrors the model's JSON. Pointer fields distinguish a field
// that is absent from one that is zero; an absent field fails validation.
type nutritionCard struct {
	Per100g struct {
		Calories *float64 `json:"calories"`
		Protein  *float64 `json:"protein"`
		Carbs    *float64 `json:"carbs"`
		Fat      *float64 `json:"fat"`
	} `json:"per_100g"`
}

// MacroProfile generates and validates a nutrition card for name. A card
// missing any of the four macro fields is an error: the caller drops the
// name rather than inserting a half-filled catalog row.
func (g *NutritionGenerator) MacroProfile(ctx context.Context, name string) (resolve.MacroProfile, error) {
	raw, err := g.client.ChatJSON(ctx, []Message{
		{Role: "system", Content: nutritionSystemPrompt},
		{Role: "user", Content: "Create card for: " + name},
	})
	if err != nil {
		return resolve.MacroProfile{}, fmt.Errorf("generating card for %q: %w", name, err)
	}

	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return resolve.MacroProfile{}, fmt.Errorf("card for %q: %w", name, err)
	}

	var card nutritionCard
	if err := json.Unmarshal([]byte(obj), &card); err != nil {
		return resolve.MacroProfile{}, fmt.Errorf("parsing card for %q: %w", name, err)
	}

	p := card.Per100g
	if p.Calories == nil || p.Protein == nil || p.Carbs == nil || p.Fat == nil {
		return resolve.MacroProfile{}, fmt.Errorf("card for %q missing required macro fields", name)
	}

	return resolve.MacroProfile{
		Calories: *p.Calories,
		Protein:  *p.Protein,
		Carbs:    *p.Carbs,
		Fat:      *p.Fat,
	}, nil
}
