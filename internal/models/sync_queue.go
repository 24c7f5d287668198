package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation is the kind of remote mutation a queue entry describes.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// SyncQueueEntry represents one intended remote mutation. Entries form an
// append-only FIFO log: entries for the same EntityID must reach the remote
// store in enqueue order, and an entry is removed only after the remote
// operation it describes has been confirmed successful.
type SyncQueueEntry struct {
	ID           UUID            `db:"id" json:"id"`
	EntityID     UUID            `db:"entity_id" json:"entityId"`
	Operation    Operation       `db:"operation" json:"operation"`
	Payload      json.RawMessage `db:"payload" json:"payload,omitempty"`
	EnqueuedAtMs int64           `db:"enqueued_at_ms" json:"enqueuedAtMs"` // ordering only, never conflict resolution
	TargetUID    string          `db:"target_uid" json:"targetUid"`
}

// NewSyncQueueEntry builds a queue entry, enforcing the payload contract at
// construction time: create and update carry a full meal snapshot, delete
// carries none.
func NewSyncQueueEntry(op Operation, meal *Meal, targetUID string) (*SyncQueueEntry, error) {
	if meal == nil {
		return nil, fmt.Errorf("%s entry requires a meal", op)
	}

	entry := &SyncQueueEntry{
		EntityID:     meal.ID,
		Operation:    op,
		TargetUID:    targetUID,
		EnqueuedAtMs: time.Now().UnixMilli(),
	}

	switch op {
	case OperationCreate, OperationUpdate:
		payload, err := json.Marshal(meal)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", op, err)
		}
		entry.Payload = payload
	case OperationDelete:
		// Delete entries carry only the target id.
	default:
		return nil, fmt.Errorf("unknown sync operation: %q", op)
	}

	return entry, nil
}

// Snapshot decodes the entry's payload back into a meal. Returns an error
// for delete entries, which carry no payload.
func (e *SyncQueueEntry) Snapshot() (*Meal, error) {
	if e.Operation == OperationDelete {
		return nil, fmt.Errorf("delete entry %s has no payload", e.ID)
	}
	var meal Meal
	if err := json.Unmarshal(e.Payload, &meal); err != nil {
		return nil, fmt.Errorf("unmarshal payload for entry %s: %w", e.ID, err)
	}
	return &meal, nil
}
