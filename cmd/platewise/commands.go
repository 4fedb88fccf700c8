package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to the assistant",
	Long: `Send a message to the assistant.

Examples:
  platewise chat "I had two eggs and toast for breakfast"
  platewise chat --session 4f2a "about 150 grams"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		session, _ := cmd.Flags().GetString("session")
		image, _ := cmd.Flags().GetString("image")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"message": message}
		if session != "" {
			req["session_id"] = session
		}
		if image != "" {
			req["image"] = image
		}

		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}

		var result struct {
			SessionID string `json:"session_id"`
			Category  string `json:"category"`
			Reply     string `json:"reply"`
			Items     []struct {
				IngredientName string  `json:"ingredient_name"`
				Grams          float64 `json:"grams"`
			} `json:"items"`
			Meal *struct {
				Name     string  `json:"name"`
				MealType string  `json:"meal_type"`
				Calories float64 `json:"calories"`
				Protein  float64 `json:"protein"`
				Carbs    float64 `json:"carbs"`
				Fat      float64 `json:"fat"`
			} `json:"meal"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Reply)
		if result.Meal != nil {
			fmt.Printf("\n%s (%s): ", colorize(colorBold, result.Meal.Name), result.Meal.MealType)
			printMacros(result.Meal.Calories, result.Meal.Protein, result.Meal.Carbs, result.Meal.Fat)
			for _, it := range result.Items {
				printItem(it.IngredientName, it.Grams)
			}
		}
		printStatus("Session", "%s", result.SessionID)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session id to continue a conversation")
	chatCmd.Flags().String("image", "", "image URL of a meal to analyze")
}

// --- summary ---

var summaryCmd = &cobra.Command{
	Use:   "summary [date]",
	Short: "Show the nutrition summary for a day (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/summary"
		if len(args) == 1 {
			path += "?date=" + args[0]
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Date    string `json:"date"`
			Summary map[string]struct {
				Calories float64 `json:"calories"`
				Protein  float64 `json:"protein"`
				Carbs    float64 `json:"carbs"`
				Fat      float64 `json:"fat"`
			} `json:"summary"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Printf("%s\n", colorize(colorBold, result.Date))
		for _, mealType := range summaryOrder(result.Summary) {
			n := result.Summary[mealType]
			printSummaryRow(mealType, n.Calories, n.Protein, n.Carbs, n.Fat)
		}
		return nil
	},
}

// summaryOrder lists meal types in day order, extras alphabetically, total
// last.
func summaryOrder[V any](summary map[string]V) []string {
	known := []string{"breakfast", "lunch", "dinner", "snack"}
	seen := make(map[string]bool, len(known)+1)
	var out []string
	for _, k := range known {
		if _, ok := summary[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var extras []string
	for k := range summary {
		if !seen[k] && k != "total" {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	out = append(out, extras...)
	if _, ok := summary["total"]; ok {
		out = append(out, "total")
	}
	return out
}

// --- meals ---

var mealsCmd = &cobra.Command{
	Use:   "meals [date]",
	Short: "List meals logged on a day (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/meals"
		if len(args) == 1 {
			path += "?date=" + args[0]
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Date  string `json:"date"`
			Meals []struct {
				Name     string  `json:"name"`
				MealType string  `json:"meal_type"`
				Calories float64 `json:"calories"`
				Items    []struct {
					IngredientName string  `json:"ingredient_name"`
					Grams          float64 `json:"grams"`
				} `json:"items"`
			} `json:"meals"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Meals) == 0 {
			fmt.Printf("No meals logged on %s.\n", result.Date)
			return nil
		}

		for _, m := range result.Meals {
			printMealHeader(m.Name, m.MealType, m.Calories)
			for _, it := range m.Items {
				printItem(it.IngredientName, it.Grams)
			}
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
