// Package models provides data model definitions for the recipe tracker.
package models

import (
	"database/sql/driver"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	if value == nil {
		*u = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*u = UUID(v)
	case string:
		*u = UUID(v)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// SyncState describes how a meal relates to its remote copy.
type SyncState string

const (
	SyncStateLocalOnly SyncState = "local-only"
	SyncStatePending   SyncState = "pending"
	SyncStateSynced    SyncState = "synced"
)

// Meal represents a logged meal. The id is assigned at local creation time
// and is used verbatim as the remote document key, so upserts are idempotent.
// UpdatedAtMs is the record's logical clock and the sole authority for
// conflict resolution; the record with the larger value wins in full.
type Meal struct {
	ID          UUID      `db:"id" json:"id"`
	OwnerUID    string    `db:"owner_uid" json:"ownerUid"`
	Name        string    `db:"name" json:"name"`
	EatenAt     int64     `db:"eaten_at" json:"eatenAt"` // unix milliseconds
	Hidden      bool      `db:"hidden" json:"hidden"`
	Tags        []string  `db:"tags" json:"tags"`
	UpdatedAtMs int64     `db:"updated_at_ms" json:"updatedAtMs"`
	Pending     bool      `db:"pending" json:"pending"`
	SyncState   SyncState `db:"sync_state" json:"syncState"`
}

// Touch advances the meal's logical clock to the current wall time,
// never moving it backwards.
func (m *Meal) Touch() {
	now := time.Now().UnixMilli()
	if now <= m.UpdatedAtMs {
		now = m.UpdatedAtMs + 1
	}
	m.UpdatedAtMs = now
}

// EatenAtTime returns EatenAt as time.Time.
func (m *Meal) EatenAtTime() time.Time {
	return time.UnixMilli(m.EatenAt)
}

// Clone returns a deep copy of the meal.
func (m *Meal) Clone() *Meal {
	if m == nil {
		return nil
	}
	c := *m
	c.Tags = append([]string(nil), m.Tags...)
	return &c
}
