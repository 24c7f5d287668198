// Package sync implements the offline-first synchronization engine: it
// drains the local mutation queue against the remote store, reconciles the
// remote record set into the local store, and keeps the two converging via
// a realtime watch stream.
package sync

import (
	"context"
	"fmt"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/remote"
	"github.com/drillvoice/recipe-tracker-sub001/internal/store"
)

// MealStore is the durable on-device store the engine reads and writes.
type MealStore interface {
	GetMealByID(id string) (*models.Meal, error)
	GetClaimableMeals(uid string) ([]*models.Meal, error)
	SaveMeal(meal *models.Meal, opts store.SaveOptions) error
	UpsertMealFromCloud(meal *models.Meal) error
	DeleteMealFromCloud(id string) error
	MarkMealSyncState(id string, state models.SyncState, pending bool) error

	GetSyncQueue() ([]*models.SyncQueueEntry, error)
	RemoveSyncItem(id string) error
	CountSyncQueue() (int, error)
	CountSyncQueueForEntity(entityID string) (int, error)
	AssignSyncQueueTargetUID(oldUID, newUID string) error
}

// RealtimeSubscription is a cancellable handle on a remote watch stream.
type RealtimeSubscription interface {
	Events() <-chan remote.DocEvent
	Close() error
}

// RemoteStore is the document-oriented remote authority.
type RemoteStore interface {
	SetDoc(ctx context.Context, uid, id string, doc remote.Document) error
	DeleteDoc(ctx context.Context, uid, id string) error
	GetDocs(ctx context.Context, uid string) ([]remote.Document, error)
	Watch(ctx context.Context, uid string) (RealtimeSubscription, error)
	SetToken(token string)
}

// AuthProvider wraps the auth collaborator's sign-in and sign-out calls.
type AuthProvider interface {
	SignInEmail(ctx context.Context, email, password string) (*remote.Session, error)
	SignOutUser(ctx context.Context) error
}

// remoteAdapter lifts *remote.Client onto RemoteStore; the concrete Watch
// returns *remote.Subscription, which satisfies RealtimeSubscription.
type remoteAdapter struct {
	*remote.Client
}

func (r remoteAdapter) Watch(ctx context.Context, uid string) (RealtimeSubscription, error) {
	return r.Client.Watch(ctx, uid)
}

// NewRemoteStore adapts the HTTP client to the engine's RemoteStore.
func NewRemoteStore(c *remote.Client) RemoteStore {
	return remoteAdapter{c}
}

// EntryError records a per-entry failure. Failures are collected, never
// thrown, and never abort sibling entries.
type EntryError struct {
	EntityID string `json:"entityId,omitempty"`
	Message  string `json:"message"`
}

func (e EntryError) String() string {
	if e.EntityID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.EntityID, e.Message)
}

// FlushResult reports one pass over the sync queue.
type FlushResult struct {
	Pushed int          `json:"pushed"`
	Errors []EntryError `json:"errors"`
}

// PullResult reports one pull-and-merge reconciliation.
type PullResult struct {
	Pulled int          `json:"pulled"`
	Errors []EntryError `json:"errors"`
}

// SyncResult is the aggregate outcome returned to callers from every sync
// attempt; errors are surfaced as non-fatal warnings.
type SyncResult struct {
	Pushed int      `json:"pushed"`
	Pulled int      `json:"pulled"`
	Errors []string `json:"errors"`
}
