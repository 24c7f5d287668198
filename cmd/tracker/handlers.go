package main

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/store"
	syncpkg "github.com/drillvoice/recipe-tracker-sub001/internal/sync"
)

// Handlers exposes the engine's public operations plus a minimal local meal
// surface to the UI layer.
type Handlers struct {
	engine *syncpkg.Engine
	store  *store.Store
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(engine *syncpkg.Engine, mealStore *store.Store) *Handlers {
	return &Handlers{engine: engine, store: mealStore}
}

// Routes builds the HTTP mux.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sync/status", h.GetSyncStatus)
	mux.HandleFunc("POST /sync/now", h.SyncNow)
	mux.HandleFunc("POST /auth/signin", h.SignIn)
	mux.HandleFunc("POST /auth/signout", h.SignOut)
	mux.HandleFunc("GET /meals", h.ListMeals)
	mux.HandleFunc("POST /meals", h.CreateMeal)
	mux.HandleFunc("PATCH /meals/{id}", h.UpdateMeal)
	mux.HandleFunc("DELETE /meals/{id}", h.DeleteMeal)
	return mux
}

// GetSyncStatus handles GET /sync/status.
func (h *Handlers) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetSyncStatus())
}

// SyncNow handles POST /sync/now. Guard failures (unauthenticated,
// concurrent sync) come back as a result with errors and zero counts, not
// as an HTTP failure.
func (h *Handlers) SyncNow(w http.ResponseWriter, r *http.Request) {
	result := h.engine.SyncNow(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// SignIn handles POST /auth/signin.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.SignInWithEmailPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.Warn("sign-in failed", map[string]interface{}{"error": err.Error()})
		if apperrors.Is(err, apperrors.ErrConcurrentSync) {
			http.Error(w, "sync in progress, retry shortly", http.StatusConflict)
			return
		}
		http.Error(w, "sign-in failed", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SignOut handles POST /auth/signout.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SignOutAndStopSync(r.Context()); err != nil {
		http.Error(w, "sign-out failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMeals handles GET /meals.
func (h *Handlers) ListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := h.store.GetAllMeals()
	if err != nil {
		http.Error(w, "failed to list meals", http.StatusInternalServerError)
		return
	}
	if meals == nil {
		meals = []*models.Meal{}
	}
	writeJSON(w, http.StatusOK, meals)
}

// CreateMeal handles POST /meals. The save path appends a sync queue entry
// so the meal reaches the remote store on the next flush.
func (h *Handlers) CreateMeal(w http.ResponseWriter, r *http.Request) {
	var meal models.Meal
	if err := json.NewDecoder(r.Body).Decode(&meal); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if meal.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	status := h.engine.GetSyncStatus()
	if meal.OwnerUID == "" && status.IsAuthenticated {
		meal.OwnerUID = status.UserID
	}

	if err := h.store.SaveMeal(&meal, store.SaveOptions{}); err != nil {
		http.Error(w, "failed to save meal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

// UpdateMeal handles PATCH /meals/{id}. Only fields present in the body are
// changed; the write advances the record's logical clock and enqueues an
// update for the next flush.
func (h *Handlers) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Name    *string   `json:"name"`
		EatenAt *int64    `json:"eatenAt"`
		Hidden  *bool     `json:"hidden"`
		Tags    *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	err := h.store.UpdateMeal(id, store.MealPatch{
		Name:    patch.Name,
		EatenAt: patch.EatenAt,
		Hidden:  patch.Hidden,
		Tags:    patch.Tags,
	}, store.SaveOptions{})
	if err != nil {
		http.Error(w, "failed to update meal", http.StatusNotFound)
		return
	}

	meal, err := h.store.GetMealByID(id)
	if err != nil || meal == nil {
		http.Error(w, "failed to load meal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

// DeleteMeal handles DELETE /meals/{id}.
func (h *Handlers) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMeal(r.PathValue("id"), store.SaveOptions{}); err != nil {
		http.Error(w, "failed to delete meal", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err, nil)
	}
}
