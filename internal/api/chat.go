// Package api exposes the assistant over HTTP and MCP. One user turn maps to
// one POST /chat request; turns for the same session are serialized, turns
// for different sessions run concurrently.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/analyzer"
	"github.com/platewise/platewise/internal/dialog"
	"github.com/platewise/platewise/internal/meals"
	"github.com/platewise/platewise/internal/router"
	"github.com/platewise/platewise/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Fallback replies for categories whose specialized handlers are not part of
// this deployment.
var categoryFallbacks = map[string]string{
	router.CategoryRecipe:    "Recipe suggestions aren't available here yet. I can log meals and summarize your day.",
	router.CategoryCoaching:  "Coaching advice isn't available here yet. I can log meals and summarize your day.",
	router.CategoryWebSearch: "I can't look that up right now. If you tell me the ingredients, I'll log them for you.",
}

// TurnRouter routes one user turn. Implemented by router.Router.
type TurnRouter interface {
	Route(ctx context.Context, sessionID, userText string, hasImage bool) router.Decision
}

// MealAnalyzer owns analyze_meal turns. Implemented by analyzer.Analyzer.
type MealAnalyzer interface {
	Analyze(ctx context.Context, sessionID, input, imageURL string) (analyzer.Result, error)
}

// MealReader serves the meal endpoints. Implemented by meals.Service.
type MealReader interface {
	DailySummary(date string) (map[string]meals.Nutrition, error)
	Favorite() (string, int, error)
}

// Store is the persistence surface the handlers need.
// Implemented by storage.Store.
type Store interface {
	AppendMessage(m dialog.Message) error
	ClearMessages(sessionID string) error
	MealsForDate(date string) ([]storage.Meal, error)
}

// Deps holds the chat handler's collaborators.
type Deps struct {
	Router   TurnRouter
	Analyzer MealAnalyzer
	Meals    MealReader
	Store    Store
}

// NewHandler returns the HTTP API. The empty token disables auth (local use).
func NewHandler(deps Deps, token string) http.Handler {
	h := &handler{deps: deps, logger: slog.Default()}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}
		r.Post("/chat", h.handleChat)
		r.Get("/meals", h.handleMeals)
		r.Get("/summary", h.handleSummary)
		r.Delete("/sessions/{id}/log", h.handleClearLog)
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type handler struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession serializes turns for one session and returns the release
// function. Entries are refcounted and removed when the last holder releases,
// so the map stays bounded by in-flight requests rather than growing with
// every session id ever seen.
func (h *handler) lockSession(sessionID string) func() {
	h.mu.Lock()
	if h.sessions == nil {
		h.sessions = make(map[string]*sessionLock)
	}
	l, ok := h.sessions[sessionID]
	if !ok {
		l = &sessionLock{}
		h.sessions[sessionID] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Image     string `json:"image"` // data URL, optional
}

type chatResponse struct {
	SessionID string             `json:"session_id"`
	Category  string             `json:"category"`
	Reply     string             `json:"reply"`
	Items     []storage.MealItem `json:"items,omitempty"`
	Meal      *mealSummary       `json:"meal,omitempty"`
}

type mealSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	MealType string  `json:"meal_type"`
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Message == "" && req.Image == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "message or image is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	unlock := h.lockSession(req.SessionID)
	defer unlock()

	d := h.deps.Router.Route(r.Context(), req.SessionID, req.Message, req.Image != "")

	resp := chatResponse{SessionID: req.SessionID, Category: d.Category, Reply: d.Reply}
	if !d.Handled {
		resp = h.dispatch(r.Context(), req, d)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// dispatch runs the downstream handler owning a routed category and appends
// its assistant reply to the session log.
func (h *handler) dispatch(ctx context.Context, req chatRequest, d router.Decision) chatResponse {
	resp := chatResponse{SessionID: req.SessionID, Category: d.Category}

	switch d.Category {
	case router.CategoryAnalyzeMeal:
		res, err := h.deps.Analyzer.Analyze(ctx, req.SessionID, d.Input, req.Image)
		if err != nil {
			h.logger.Warn("meal analysis failed", "session_id", req.SessionID, "error", err)
			resp.Reply = "I encountered an error analyzing your meal. Please try again."
			break
		}
		resp.Reply = res.Reply
		resp.Items = res.Items
		if res.Meal.ID != "" {
			resp.Meal = &mealSummary{
				ID:       res.Meal.ID,
				Name:     res.Meal.Name,
				MealType: res.Meal.MealType,
				Date:     res.Meal.Date,
				Calories: res.Meal.Calories,
				Protein:  res.Meal.Protein,
				Carbs:    res.Meal.Carbs,
				Fat:      res.Meal.Fat,
			}
		}
	default:
		reply, ok := categoryFallbacks[d.Category]
		if !ok {
			reply = "I'm here to help with your nutrition needs. Could you tell me more about what you'd like to do?"
		}
		resp.Reply = reply
	}

	h.appendAssistant(req.SessionID, resp)
	return resp
}

// appendAssistant logs the downstream handler's reply. Best-effort: a failed
// append degrades the next turn's context but never fails this one.
func (h *handler) appendAssistant(sessionID string, resp chatResponse) {
	var loggedItems []dialog.LoggedItem
	for _, it := range resp.Items {
		loggedItems = append(loggedItems, dialog.LoggedItem{
			IngredientID:   it.IngredientID,
			IngredientName: it.IngredientName,
			Grams:          it.Grams,
		})
	}
	err := h.deps.Store.AppendMessage(dialog.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      dialog.RoleAssistant,
		Content:   resp.Reply,
		Category:  resp.Category,
		Meta:      dialog.Metadata{Type: resp.Category, Items: loggedItems},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("appending assistant reply failed, future turns lose this context",
			"session_id", sessionID, "error", err)
	}
}

func (h *handler) handleMeals(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	logged, err := h.deps.Store.MealsForDate(date)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading meals: %v", err)
		return
	}

	out := make([]map[string]any, 0, len(logged))
	for _, m := range logged {
		out = append(out, map[string]any{
			"id":        m.ID,
			"name":      m.Name,
			"meal_type": m.MealType,
			"date":      m.Date,
			"items":     m.Items,
			"calories":  m.Calories,
			"protein":   m.Protein,
			"carbs":     m.Carbs,
			"fat":       m.Fat,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"date": date, "meals": out})
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	summary, err := h.deps.Meals.DailySummary(date)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "computing summary: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"date": date, "summary": summary})
}

func (h *handler) handleClearLog(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := h.deps.Store.ClearMessages(sessionID); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "clearing session log: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
