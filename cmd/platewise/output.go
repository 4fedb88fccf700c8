package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// printMealHeader prints a logged meal's name, type, and calorie total.
func printMealHeader(name, mealType string, calories float64) {
	fmt.Printf("%s [%s] %.0f kcal\n", colorize(colorBold, name), mealType, calories)
}

// printItem prints one resolved ingredient line under a meal.
func printItem(name string, grams float64) {
	fmt.Printf("  - %s: %.0fg\n", name, grams)
}

// printMacros prints a full macro breakdown for a meal.
func printMacros(calories, protein, carbs, fat float64) {
	fmt.Printf("%.0f kcal, %.1fg protein, %.1fg carbs, %.1fg fat\n",
		calories, protein, carbs, fat)
}

// printSummaryRow prints one meal-type row of a daily summary, columns
// aligned for terminal scanning.
func printSummaryRow(mealType string, calories, protein, carbs, fat float64) {
	fmt.Printf("  %-10s %7.1f kcal  %6.1fg protein  %6.1fg carbs  %6.1fg fat\n",
		mealType, calories, protein, carbs, fat)
}
