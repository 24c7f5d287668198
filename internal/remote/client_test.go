package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
)

func newTestClient(server *httptest.Server) *Client {
	c := NewClient(&Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	c.SetToken("test-token")
	return c
}

func TestSetDoc(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey, gotAuth string
	var gotDoc Document

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-Api-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(server)
	doc := Document{ID: "m1", Name: "lunch", OwnerUID: "uid-1", UpdatedAtMs: 1000, Tags: []string{"quick"}}

	require.NoError(t, c.SetDoc(context.Background(), "uid-1", "m1", doc))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/v1/users/uid-1/meals/m1", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, doc, gotDoc)
}

func TestSetDocServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server)
	err := c.SetDoc(context.Background(), "uid-1", "m1", Document{ID: "m1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDeleteDocToleratesMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := newTestClient(server)
	assert.NoError(t, c.DeleteDoc(context.Background(), "uid-1", "missing"),
		"deleting an absent document is not an error")
}

func TestDeleteDocServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	c := newTestClient(server)
	require.Error(t, c.DeleteDoc(context.Background(), "uid-1", "m1"))
}

func TestGetDocs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/uid-1/meals", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"documents": []Document{
				{ID: "m1", Name: "breakfast", UpdatedAtMs: 100},
				{ID: "m2", Name: "dinner", UpdatedAtMs: 200},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server)
	docs, err := c.GetDocs(context.Background(), "uid-1")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "m1", docs[0].ID)
	assert.Equal(t, "dinner", docs[1].Name)
}

func TestGetDocsEmptyCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"documents": []Document{}})
	}))
	defer server.Close()

	c := newTestClient(server)
	docs, err := c.GetDocs(context.Background(), "uid-1")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentMealRoundTrip(t *testing.T) {
	meal := &models.Meal{
		ID:          "m1",
		OwnerUID:    "uid-1",
		Name:        "stew",
		EatenAt:     1700000000000,
		Hidden:      true,
		Tags:        []string{"slow"},
		UpdatedAtMs: 42,
	}

	got := DocumentFromMeal(meal).Meal()
	assert.Equal(t, meal.ID, got.ID)
	assert.Equal(t, meal.Name, got.Name)
	assert.Equal(t, meal.EatenAt, got.EatenAt)
	assert.Equal(t, meal.Hidden, got.Hidden)
	assert.Equal(t, meal.Tags, got.Tags)
	assert.Equal(t, meal.UpdatedAtMs, got.UpdatedAtMs)
}

func TestDocumentFromMealNilTags(t *testing.T) {
	doc := DocumentFromMeal(&models.Meal{ID: "m1"})
	require.NotNil(t, doc.Tags, "wire shape always carries a tags array")
	assert.Empty(t, doc.Tags)
}

func TestSignInEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth/signin", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@example.com", creds["email"])
		json.NewEncoder(w).Encode(Session{UID: "uid-1", Email: "a@example.com", Token: "tok"})
	}))
	defer server.Close()

	a := NewAuthClient(&Config{BaseURL: server.URL})
	session, err := a.SignInEmail(context.Background(), "a@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", session.UID)
	assert.Equal(t, "tok", session.Token)
	assert.False(t, session.IsAnonymous)
}

func TestSignInEmailRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewAuthClient(&Config{BaseURL: server.URL})
	_, err := a.SignInEmail(context.Background(), "a@example.com", "wrong")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSetTokenConcurrentWithRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"documents": []Document{}})
	}))
	defer server.Close()

	c := newTestClient(server)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.SetToken(fmt.Sprintf("tok-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := c.GetDocs(context.Background(), "uid-1"); err != nil {
				t.Errorf("GetDocs failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestWatchURLScheme(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://host:8080", "ws://host:8080/v1/users/uid-1/meals/watch"},
		{"https://host", "wss://host/v1/users/uid-1/meals/watch"},
	}
	for _, tt := range tests {
		c := NewClient(&Config{BaseURL: tt.base})
		assert.Equal(t, tt.want, c.watchURL("uid-1"))
	}
}
