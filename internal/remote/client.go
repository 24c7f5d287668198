// Package remote provides the thin transport against the remote meal store:
// per-owner document upsert, delete, batch read, and a realtime watch
// stream. The sync engine treats failures here as retryable per-entry
// errors; timeouts are this package's responsibility.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
)

// Document is the remote wire shape of a meal, keyed by the record id
// under the owner's collection.
type Document struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	EatenAt     int64    `json:"eatenAt"`
	OwnerUID    string   `json:"ownerUid"`
	Hidden      bool     `json:"hidden"`
	Tags        []string `json:"tags"`
	UpdatedAtMs int64    `json:"updatedAtMs"`
}

// DocumentFromMeal converts a local meal into its wire shape.
func DocumentFromMeal(meal *models.Meal) Document {
	tags := meal.Tags
	if tags == nil {
		tags = []string{}
	}
	return Document{
		ID:          string(meal.ID),
		Name:        meal.Name,
		EatenAt:     meal.EatenAt,
		OwnerUID:    meal.OwnerUID,
		Hidden:      meal.Hidden,
		Tags:        tags,
		UpdatedAtMs: meal.UpdatedAtMs,
	}
}

// Meal converts a remote document into a local meal record.
func (d Document) Meal() *models.Meal {
	return &models.Meal{
		ID:          models.UUID(d.ID),
		OwnerUID:    d.OwnerUID,
		Name:        d.Name,
		EatenAt:     d.EatenAt,
		Hidden:      d.Hidden,
		Tags:        append([]string(nil), d.Tags...),
		UpdatedAtMs: d.UpdatedAtMs,
	}
}

// Config holds remote store connection configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements the document-oriented remote store over HTTP.
type Client struct {
	config     *Config
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a new remote store client.
func NewClient(config *Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// SetToken attaches a session token to subsequent requests. Safe to call
// while requests are in flight: sign-in and the periodic sync run on
// different goroutines.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetDoc upserts a document at uid/id. Overwrites are idempotent, so a
// replayed create is harmless.
func (c *Client) SetDoc(ctx context.Context, uid, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", id, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.docPath(uid, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return responseError("upsert", resp)
	}
	return nil
}

// DeleteDoc deletes the document at uid/id. A missing document is not an
// error.
func (c *Client) DeleteDoc(ctx context.Context, uid, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.docPath(uid, id), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return responseError("delete", resp)
	}
}

// GetDocs reads the full document set for an owner.
func (c *Client) GetDocs(ctx context.Context, uid string) ([]Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.collectionPath(uid), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("list", resp)
	}

	var payload struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}
	return payload.Documents, nil
}

func (c *Client) docPath(uid, id string) string {
	return fmt.Sprintf("/v1/users/%s/meals/%s", url.PathEscape(uid), url.PathEscape(id))
}

func (c *Client) collectionPath(uid string) string {
	return fmt.Sprintf("/v1/users/%s/meals", url.PathEscape(uid))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func responseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
}
