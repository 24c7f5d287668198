package sync

import (
	"context"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/store"
	"github.com/drillvoice/recipe-tracker-sub001/internal/sync/resolver"
)

// InitialPullAndMerge reconciles the full remote record set for uid into
// the local store. It is a one-shot run per sign-in or startup; continuous
// divergence afterward is handled by the realtime listener plus queued
// pushes.
//
// Remote records that win last-write-wins are written through the
// cloud-upsert path, which never enqueues a further push. Local records
// owned by uid with no remote counterpart (created while offline) are
// re-attributed and persisted through the normal save path with enqueueing
// enabled, so the next flush pushes them. Those discoveries are a side
// effect and are not counted in Pulled.
func (e *Engine) InitialPullAndMerge(ctx context.Context, uid string) *PullResult {
	result := &PullResult{Errors: []EntryError{}}

	docs, err := e.remote.GetDocs(ctx, uid)
	if err != nil {
		result.Errors = append(result.Errors, EntryError{
			Message: apperrors.Wrap(apperrors.ErrMergeRead, "failed to read remote record set", err).Error(),
		})
		return result
	}

	remoteIDs := make(map[string]bool, len(docs))

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, EntryError{Message: ctx.Err().Error()})
			return result
		default:
		}

		remoteIDs[doc.ID] = true

		local, err := e.store.GetMealByID(doc.ID)
		if err != nil {
			result.Errors = append(result.Errors, EntryError{EntityID: doc.ID, Message: err.Error()})
			continue
		}

		remoteMeal := doc.Meal()
		if resolver.Resolve(local, remoteMeal) != resolver.AdoptRemote {
			continue
		}

		if err := e.store.UpsertMealFromCloud(remoteMeal); err != nil {
			result.Errors = append(result.Errors, EntryError{EntityID: doc.ID, Message: err.Error()})
			continue
		}
		result.Pulled++
	}

	// Schedule local-only records for push.
	locals, err := e.store.GetClaimableMeals(uid)
	if err != nil {
		result.Errors = append(result.Errors, EntryError{
			Message: apperrors.Wrap(apperrors.ErrDatabase, "failed to enumerate local records", err).Error(),
		})
		return result
	}

	requeued := 0
	for _, meal := range locals {
		if remoteIDs[string(meal.ID)] {
			continue
		}
		meal.OwnerUID = uid
		meal.Pending = true
		if err := e.store.SaveMeal(meal, store.SaveOptions{}); err != nil {
			result.Errors = append(result.Errors, EntryError{
				EntityID: string(meal.ID),
				Message:  err.Error(),
			})
			continue
		}
		requeued++
	}

	logging.Info("pull-and-merge completed", map[string]interface{}{
		"uid":      uid,
		"remote":   len(docs),
		"pulled":   result.Pulled,
		"requeued": requeued,
		"errors":   len(result.Errors),
	})

	return result
}
