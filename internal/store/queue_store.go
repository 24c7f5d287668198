package store

import (
	"database/sql"
	"fmt"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/uuid"
)

const queueColumns = `id, entity_id, operation, payload, enqueued_at_ms, target_uid`

// GetSyncQueue returns all queue entries in FIFO order.
func (s *Store) GetSyncQueue() ([]*models.SyncQueueEntry, error) {
	rows, err := s.db.Query(`SELECT ` + queueColumns + ` FROM sync_queue ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.SyncQueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// RemoveSyncItem deletes a queue entry after its remote operation has been
// confirmed successful.
func (s *Store) RemoveSyncItem(id string) error {
	result, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("sync item not found: %s", id)
	}
	return nil
}

// QueuePatch is a partial update to a queue entry.
type QueuePatch struct {
	TargetUID *string
	Payload   *[]byte
}

// UpdateSyncItem applies a patch to a queue entry.
func (s *Store) UpdateSyncItem(id string, patch QueuePatch) error {
	if patch.TargetUID != nil {
		if _, err := s.db.Exec(`UPDATE sync_queue SET target_uid = ? WHERE id = ?`, *patch.TargetUID, id); err != nil {
			return err
		}
	}
	if patch.Payload != nil {
		if _, err := s.db.Exec(`UPDATE sync_queue SET payload = ? WHERE id = ?`, string(*patch.Payload), id); err != nil {
			return err
		}
	}
	return nil
}

// AssignSyncQueueTargetUID reattributes every queue entry from oldUID to
// newUID. Called on sign-in so offline edits made under an anonymous
// session are pushed under the authenticated identity; must run before the
// next flush.
func (s *Store) AssignSyncQueueTargetUID(oldUID, newUID string) error {
	_, err := s.db.Exec(`UPDATE sync_queue SET target_uid = ? WHERE target_uid = ?`, newUID, oldUID)
	return err
}

// CountSyncQueue returns the number of pending queue entries.
func (s *Store) CountSyncQueue() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	return count, err
}

// CountSyncQueueForEntity returns the number of outstanding entries for one
// record. The push engine marks a record synced once this reaches zero.
func (s *Store) CountSyncQueueForEntity(entityID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue WHERE entity_id = ?`, entityID).Scan(&count)
	return count, err
}

// enqueue appends an entry, coalescing it against outstanding entries for
// the same entity so the queue holds only the net effect:
//
//	create then update  -> create carrying the latest snapshot
//	update then update  -> latest update only
//	create then delete  -> nothing (the remote store never saw the record)
//	update then delete  -> delete only
//
// Entries for different entities are never touched.
func enqueue(tx *sql.Tx, entry *models.SyncQueueEntry) error {
	rows, err := tx.Query(
		`SELECT `+queueColumns+` FROM sync_queue WHERE entity_id = ? ORDER BY seq`,
		string(entry.EntityID),
	)
	if err != nil {
		return err
	}
	var existing []*models.SyncQueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	switch entry.Operation {
	case models.OperationCreate, models.OperationUpdate:
		// Fold the new snapshot into the oldest outstanding entry; its
		// operation (create or update) already describes the remote intent.
		// A delete in the history means the sequence is order-sensitive, so
		// the new entry is appended instead.
		if len(existing) > 0 && !anyDelete(existing) {
			head := existing[0]
			_, err := tx.Exec(
				`UPDATE sync_queue SET payload = ? WHERE id = ?`,
				string(entry.Payload), string(head.ID),
			)
			return err
		}

	case models.OperationDelete:
		hadCreate := false
		for _, e := range existing {
			if e.Operation == models.OperationCreate {
				hadCreate = true
			}
		}
		if len(existing) > 0 {
			if _, err := tx.Exec(`DELETE FROM sync_queue WHERE entity_id = ?`, string(entry.EntityID)); err != nil {
				return err
			}
		}
		if hadCreate {
			// Never pushed; nothing to delete remotely.
			return nil
		}
	}

	if entry.ID == "" {
		entry.ID = models.UUID(uuid.New())
	}
	_, err = tx.Exec(
		`INSERT INTO sync_queue (id, entity_id, operation, payload, enqueued_at_ms, target_uid) VALUES (?, ?, ?, ?, ?, ?)`,
		string(entry.ID), string(entry.EntityID), string(entry.Operation),
		nullablePayload(entry), entry.EnqueuedAtMs, entry.TargetUID,
	)
	return err
}

func anyDelete(entries []*models.SyncQueueEntry) bool {
	for _, e := range entries {
		if e.Operation == models.OperationDelete {
			return true
		}
	}
	return false
}

func nullablePayload(entry *models.SyncQueueEntry) interface{} {
	if entry.Payload == nil {
		return nil
	}
	return string(entry.Payload)
}

func scanQueueEntry(rows *sql.Rows) (*models.SyncQueueEntry, error) {
	var entry models.SyncQueueEntry
	var payload sql.NullString
	err := rows.Scan(&entry.ID, &entry.EntityID, &entry.Operation, &payload,
		&entry.EnqueuedAtMs, &entry.TargetUID)
	if err != nil {
		return nil, err
	}
	if payload.Valid {
		entry.Payload = []byte(payload.String)
	}
	return &entry, nil
}
