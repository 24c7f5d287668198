package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/store"
	syncpkg "github.com/drillvoice/recipe-tracker-sub001/internal/sync"
)

func setupHandlers(t *testing.T) http.Handler {
	t.Helper()
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db.DB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mealStore := store.NewStore(db.DB)
	engine := syncpkg.NewEngine(mealStore, nil, nil)
	return NewHandlers(engine, mealStore).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMealLifecycleOverHTTP(t *testing.T) {
	h := setupHandlers(t)

	rec := doRequest(t, h, http.MethodPost, "/meals", `{"name":"pasta","eatenAt":1700000000000,"tags":["dinner"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Meal
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("create did not assign an id")
	}
	if !created.Pending {
		t.Error("created meal should be pending until pushed")
	}

	rec = doRequest(t, h, http.MethodPatch, "/meals/"+string(created.ID), `{"name":"pasta al forno"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Meal
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("update response: %v", err)
	}
	if updated.Name != "pasta al forno" {
		t.Errorf("name = %s", updated.Name)
	}
	if updated.UpdatedAtMs <= created.UpdatedAtMs {
		t.Error("update did not advance the logical clock")
	}

	rec = doRequest(t, h, http.MethodGet, "/meals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var meals []models.Meal
	if err := json.Unmarshal(rec.Body.Bytes(), &meals); err != nil {
		t.Fatalf("list response: %v", err)
	}
	if len(meals) != 1 {
		t.Fatalf("meals = %d, want 1", len(meals))
	}

	rec = doRequest(t, h, http.MethodDelete, "/meals/"+string(created.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/meals", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &meals); err != nil {
		t.Fatalf("list response: %v", err)
	}
	if len(meals) != 0 {
		t.Errorf("meals after delete = %d, want 0", len(meals))
	}
}

func TestCreateMealRequiresName(t *testing.T) {
	h := setupHandlers(t)
	rec := doRequest(t, h, http.MethodPost, "/meals", `{"eatenAt":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSyncStatusEndpoint(t *testing.T) {
	h := setupHandlers(t)

	doRequest(t, h, http.MethodPost, "/meals", `{"name":"soup","eatenAt":1}`)

	rec := doRequest(t, h, http.MethodGet, "/sync/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status models.SyncStatusSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("status response: %v", err)
	}
	if status.IsConfigured {
		t.Error("IsConfigured should be false without a remote store")
	}
	if status.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", status.PendingCount)
	}
}

func TestSyncNowWithoutRemote(t *testing.T) {
	h := setupHandlers(t)

	rec := doRequest(t, h, http.MethodPost, "/sync/now", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, guard failures are results not HTTP errors", rec.Code)
	}
	var result syncpkg.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("sync response: %v", err)
	}
	if result.Pushed != 0 || result.Pulled != 0 {
		t.Errorf("counts = %d/%d, want 0/0", result.Pushed, result.Pulled)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
}
