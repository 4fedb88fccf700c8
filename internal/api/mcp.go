package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mcpSessionID is the session identity for meals logged over MCP. MCP
// clients carry their own conversation state, so one shared log session is
// enough.
const mcpSessionID = "mcp"

// MCPCatalog lists the ingredient index for the MCP layer.
// Implemented by storage.Store.
type MCPCatalog interface {
	IngredientNamesAndIDs() ([]string, []int64, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer MealAnalyzer
	Meals    MealReader
	Catalog  MCPCatalog
}

// NewMCPServer creates an MCP server exposing the meal-logging tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"platewise",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("platewise is a conversational food logger: it parses meal descriptions, resolves ingredients, and tracks daily nutrition."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("log_meal",
			mcp.WithDescription("Parse a free-text meal description, resolve its ingredients, and log the meal with computed nutrition totals."),
			mcp.WithString("description", mcp.Description("What was eaten, e.g. '200g chicken breast with rice'"), mcp.Required()),
		),
		mcpLogMeal(deps),
	)

	s.AddTool(
		mcp.NewTool("daily_summary",
			mcp.WithDescription("Nutrition totals for one day, grouped by meal type."),
			mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (default today)")),
		),
		mcpDailySummary(deps),
	)

	s.AddTool(
		mcp.NewTool("list_ingredients",
			mcp.WithDescription("List the canonical ingredient catalog (id and name)."),
		),
		mcpListIngredients(deps),
	)

	return s
}

func mcpLogMeal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description, err := req.RequireString("description")
		if err != nil {
			return mcpError("description is required"), nil
		}

		res, err := deps.Analyzer.Analyze(ctx, mcpSessionID, description, "")
		if err != nil {
			return mcpError(fmt.Sprintf("meal analysis failed: %v", err)), nil
		}

		out := map[string]any{
			"reply": res.Reply,
			"items": res.Items,
		}
		if res.Meal.ID != "" {
			out["meal"] = map[string]any{
				"id":        res.Meal.ID,
				"name":      res.Meal.Name,
				"meal_type": res.Meal.MealType,
				"date":      res.Meal.Date,
				"calories":  res.Meal.Calories,
				"protein":   res.Meal.Protein,
				"carbs":     res.Meal.Carbs,
				"fat":       res.Meal.Fat,
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpDailySummary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date := req.GetString("date", "")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return mcpError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date)), nil
		}

		summary, err := deps.Meals.DailySummary(date)
		if err != nil {
			return mcpError(fmt.Sprintf("summary failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{"date": date, "summary": summary})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListIngredients(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, ids, err := deps.Catalog.IngredientNamesAndIDs()
		if err != nil {
			return mcpError(fmt.Sprintf("listing ingredients failed: %v", err)), nil
		}

		type entry struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		out := make([]entry, len(names))
		for i := range names {
			out[i] = entry{ID: ids[i], Name: names[i]}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal ingredients: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
