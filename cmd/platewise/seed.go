package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the ingredient catalog with common foods",
	Long: `Seed the ingredient catalog with a starter set of common foods.

Already-present ingredients are left untouched, so re-running is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		printStep("Seeding ingredient catalog...")
		added, err := store.SeedIngredients(cmd.Context(), starterIngredients)
		if err != nil {
			return fmt.Errorf("seeding ingredients: %w", err)
		}

		printSuccess("Added %d ingredients (%d already present)", added, len(starterIngredients)-added)
		return nil
	},
}

// starterIngredients is a catalog of common foods with macros per unit weight
// in grams.
var starterIngredients = []storage.Ingredient{
	// Proteins
	{Name: "Egg", Calories: 78, Protein: 6.3, Carbs: 0.6, Fat: 5.3, UnitWeight: 50},
	{Name: "Chicken Breast", Calories: 165, Protein: 31.0, Carbs: 0.0, Fat: 3.6, UnitWeight: 100},
	{Name: "Salmon", Calories: 206, Protein: 22.0, Carbs: 0.0, Fat: 13.0, UnitWeight: 100},
	{Name: "Tuna (Canned in Water)", Calories: 132, Protein: 28.0, Carbs: 0.0, Fat: 1.3, UnitWeight: 100},
	{Name: "Tofu (Firm)", Calories: 144, Protein: 15.0, Carbs: 3.9, Fat: 8.0, UnitWeight: 150},
	{Name: "Lentils (Cooked)", Calories: 230, Protein: 18.0, Carbs: 40.0, Fat: 0.8, UnitWeight: 200},
	{Name: "Black Beans (Cooked)", Calories: 227, Protein: 15.2, Carbs: 40.4, Fat: 0.9, UnitWeight: 200},

	// Dairy
	{Name: "Milk", Calories: 103, Protein: 8.0, Carbs: 12.0, Fat: 2.4, UnitWeight: 250},
	{Name: "Greek Yogurt", Calories: 100, Protein: 10.0, Carbs: 6.0, Fat: 0.7, UnitWeight: 170},
	{Name: "Cheddar Cheese", Calories: 113, Protein: 7.0, Carbs: 0.4, Fat: 9.3, UnitWeight: 28},
	{Name: "Cottage Cheese", Calories: 206, Protein: 23.0, Carbs: 8.2, Fat: 9.7, UnitWeight: 210},

	// Fruits
	{Name: "Banana", Calories: 105, Protein: 1.3, Carbs: 27.0, Fat: 0.3, UnitWeight: 100},
	{Name: "Apple", Calories: 95, Protein: 0.5, Carbs: 25.0, Fat: 0.3, UnitWeight: 182},
	{Name: "Orange", Calories: 62, Protein: 1.2, Carbs: 15.4, Fat: 0.2, UnitWeight: 131},
	{Name: "Strawberries", Calories: 53, Protein: 1.1, Carbs: 12.7, Fat: 0.5, UnitWeight: 166},
	{Name: "Blueberries", Calories: 85, Protein: 1.1, Carbs: 21.5, Fat: 0.5, UnitWeight: 148},
	{Name: "Grapes", Calories: 62, Protein: 0.6, Carbs: 16.0, Fat: 0.3, UnitWeight: 92},
	{Name: "Watermelon", Calories: 46, Protein: 0.9, Carbs: 11.5, Fat: 0.2, UnitWeight: 152},

	// Vegetables
	{Name: "Broccoli", Calories: 55, Protein: 4.6, Carbs: 11.2, Fat: 0.6, UnitWeight: 148},
	{Name: "Spinach", Calories: 23, Protein: 2.9, Carbs: 3.6, Fat: 0.4, UnitWeight: 100},
	{Name: "Carrot", Calories: 25, Protein: 0.6, Carbs: 6.0, Fat: 0.1, UnitWeight: 61},
	{Name: "Tomato", Calories: 22, Protein: 1.1, Carbs: 4.8, Fat: 0.2, UnitWeight: 123},
	{Name: "Cucumber", Calories: 16, Protein: 0.7, Carbs: 3.8, Fat: 0.1, UnitWeight: 100},
	{Name: "Bell Pepper", Calories: 31, Protein: 1.0, Carbs: 6.0, Fat: 0.3, UnitWeight: 119},
	{Name: "Onion", Calories: 44, Protein: 1.2, Carbs: 10.3, Fat: 0.1, UnitWeight: 110},

	// Grains
	{Name: "Oats", Calories: 150, Protein: 5.0, Carbs: 27.0, Fat: 3.0, UnitWeight: 50},
	{Name: "Brown Rice", Calories: 216, Protein: 5.0, Carbs: 44.8, Fat: 1.8, UnitWeight: 195},
	{Name: "Quinoa (Cooked)", Calories: 222, Protein: 8.1, Carbs: 39.4, Fat: 3.6, UnitWeight: 185},
	{Name: "Whole Wheat Bread", Calories: 69, Protein: 3.6, Carbs: 11.6, Fat: 1.1, UnitWeight: 28},

	// Nuts and seeds
	{Name: "Almonds", Calories: 164, Protein: 6.0, Carbs: 6.1, Fat: 14.2, UnitWeight: 28},
	{Name: "Walnuts", Calories: 185, Protein: 4.3, Carbs: 3.9, Fat: 18.5, UnitWeight: 28},
	{Name: "Chia Seeds", Calories: 137, Protein: 4.4, Carbs: 12.0, Fat: 8.6, UnitWeight: 28},
	{Name: "Peanut Butter", Calories: 188, Protein: 8.0, Carbs: 6.0, Fat: 16.0, UnitWeight: 32},

	// Oils and fats
	{Name: "Olive Oil", Calories: 119, Protein: 0.0, Carbs: 0.0, Fat: 13.5, UnitWeight: 10},
	{Name: "Butter", Calories: 102, Protein: 0.1, Carbs: 0.0, Fat: 11.5, UnitWeight: 14},
	{Name: "Coconut Oil", Calories: 117, Protein: 0.0, Carbs: 0.0, Fat: 13.6, UnitWeight: 14},

	// Snacks
	{Name: "Dark Chocolate (70%)", Calories: 170, Protein: 2.0, Carbs: 13.0, Fat: 12.0, UnitWeight: 28},
	{Name: "Popcorn (Air-Popped)", Calories: 31, Protein: 1.0, Carbs: 6.2, Fat: 0.4, UnitWeight: 8},

	// Condiments
	{Name: "Soy Sauce", Calories: 8, Protein: 1.3, Carbs: 0.8, Fat: 0.0, UnitWeight: 15},
	{Name: "Honey", Calories: 64, Protein: 0.1, Carbs: 17.3, Fat: 0.0, UnitWeight: 21},
	{Name: "Ketchup", Calories: 20, Protein: 0.2, Carbs: 5.0, Fat: 0.0, UnitWeight: 15},
}
