package sync

import (
	"context"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/remote"
	"github.com/drillvoice/recipe-tracker-sub001/internal/sync/resolver"
)

// startRealtime attaches the watch stream for uid after the initial pull.
// Any previous subscription is released first.
func (e *Engine) startRealtime(ctx context.Context, uid string) error {
	e.stopRealtime()

	sub, err := e.remote.Watch(ctx, uid)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRealtimeSubscription, "failed to attach realtime listener", err)
	}

	e.mu.Lock()
	e.sub = sub
	e.realtimeUp = true
	e.mu.Unlock()

	go e.consumeEvents(sub, uid)

	logging.Info("realtime listener attached", map[string]interface{}{"uid": uid})
	return nil
}

// stopRealtime releases the current subscription, if any.
func (e *Engine) stopRealtime() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.realtimeUp = false
	e.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

// consumeEvents re-applies the conflict resolver for every remote change
// notification and updates the local store accordingly. Remote writes are
// already authoritative, so nothing here enqueues a push.
func (e *Engine) consumeEvents(sub RealtimeSubscription, uid string) {
	for event := range sub.Events() {
		e.applyRemoteEvent(event)
	}

	e.mu.Lock()
	if e.sub == sub {
		e.sub = nil
		e.realtimeUp = false
	}
	e.mu.Unlock()

	logging.Info("realtime listener detached", map[string]interface{}{"uid": uid})
}

func (e *Engine) applyRemoteEvent(event remote.DocEvent) {
	switch event.Type {
	case remote.EventDelete:
		if err := e.store.DeleteMealFromCloud(event.Doc.ID); err != nil {
			logging.Warn("failed to apply remote delete", map[string]interface{}{
				"meal_id": event.Doc.ID,
				"error":   err.Error(),
			})
		}

	case remote.EventUpsert:
		local, err := e.store.GetMealByID(event.Doc.ID)
		if err != nil {
			logging.Warn("failed to read local record for remote event", map[string]interface{}{
				"meal_id": event.Doc.ID,
				"error":   err.Error(),
			})
			return
		}

		remoteMeal := event.Doc.Meal()
		if resolver.Resolve(local, remoteMeal) != resolver.AdoptRemote {
			return
		}
		if err := e.store.UpsertMealFromCloud(remoteMeal); err != nil {
			logging.Warn("failed to apply remote upsert", map[string]interface{}{
				"meal_id": event.Doc.ID,
				"error":   err.Error(),
			})
		}

	default:
		logging.Debug("ignoring unknown watch event type", map[string]interface{}{
			"type": string(event.Type),
		})
	}
}
