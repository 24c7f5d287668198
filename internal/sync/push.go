package sync

import (
	"context"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/remote"
)

// FlushSyncQueue drains the local mutation queue against the remote store
// in FIFO order. A failing entry is left in place for the next flush and
// never aborts its siblings; entries for an entity that already failed this
// pass are skipped to preserve per-entity causal order.
func (e *Engine) FlushSyncQueue(ctx context.Context, uid string) *FlushResult {
	result := &FlushResult{Errors: []EntryError{}}

	entries, err := e.store.GetSyncQueue()
	if err != nil {
		result.Errors = append(result.Errors, EntryError{
			Message: apperrors.Wrap(apperrors.ErrDatabase, "failed to read sync queue", err).Error(),
		})
		return result
	}
	if len(entries) == 0 {
		return result
	}

	logging.Info("flushing sync queue", map[string]interface{}{
		"uid":     uid,
		"entries": len(entries),
	})

	failed := make(map[models.UUID]bool)

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, EntryError{
				EntityID: string(entry.EntityID),
				Message:  ctx.Err().Error(),
			})
			return result
		default:
		}

		if failed[entry.EntityID] {
			// An earlier entry for this entity stayed queued; applying this
			// one would break enqueue order.
			continue
		}

		targetUID := entry.TargetUID
		if targetUID == "" {
			targetUID = uid
		}

		if err := e.applyEntry(ctx, targetUID, entry); err != nil {
			failed[entry.EntityID] = true
			result.Errors = append(result.Errors, EntryError{
				EntityID: string(entry.EntityID),
				Message:  err.Error(),
			})
			logging.Warn("sync entry failed, left in queue", map[string]interface{}{
				"entry_id":  string(entry.ID),
				"entity_id": string(entry.EntityID),
				"operation": string(entry.Operation),
				"error":     err.Error(),
			})
			continue
		}

		if err := e.store.RemoveSyncItem(string(entry.ID)); err != nil {
			result.Errors = append(result.Errors, EntryError{
				EntityID: string(entry.EntityID),
				Message:  err.Error(),
			})
			continue
		}
		result.Pushed++

		if entry.Operation == models.OperationDelete {
			continue
		}
		remaining, err := e.store.CountSyncQueueForEntity(string(entry.EntityID))
		if err != nil {
			result.Errors = append(result.Errors, EntryError{
				EntityID: string(entry.EntityID),
				Message:  err.Error(),
			})
			continue
		}
		if remaining == 0 {
			if err := e.store.MarkMealSyncState(string(entry.EntityID), models.SyncStateSynced, false); err != nil {
				result.Errors = append(result.Errors, EntryError{
					EntityID: string(entry.EntityID),
					Message:  err.Error(),
				})
			}
		}
	}

	return result
}

// applyEntry performs the remote call an entry describes. Upserts are
// idempotent overwrites keyed by the entity id; deleting an absent document
// is not an error (the client tolerates it).
func (e *Engine) applyEntry(ctx context.Context, uid string, entry *models.SyncQueueEntry) error {
	switch entry.Operation {
	case models.OperationCreate, models.OperationUpdate:
		meal, err := entry.Snapshot()
		if err != nil {
			return err
		}
		meal.OwnerUID = uid
		doc := remote.DocumentFromMeal(meal)
		if err := e.remote.SetDoc(ctx, uid, string(entry.EntityID), doc); err != nil {
			return apperrors.Wrap(apperrors.ErrRemoteOperation, "remote upsert failed", err)
		}
		return nil

	case models.OperationDelete:
		if err := e.remote.DeleteDoc(ctx, uid, string(entry.EntityID)); err != nil {
			return apperrors.Wrap(apperrors.ErrRemoteOperation, "remote delete failed", err)
		}
		return nil

	default:
		return apperrors.New(apperrors.ErrInvalid, "unknown sync operation: "+string(entry.Operation))
	}
}
