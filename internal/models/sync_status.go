package models

import "time"

// SyncStatusSnapshot is the process-wide sync status. It is rebuilt on
// demand from the current auth state and queue length and is never
// persisted; IsSyncing is the only field with cross-call memory.
type SyncStatusSnapshot struct {
	IsConfigured      bool       `json:"isConfigured"`
	IsAuthenticated   bool       `json:"isAuthenticated"`
	IsAnonymous       bool       `json:"isAnonymous"`
	UserID            string     `json:"userId,omitempty"`
	Email             string     `json:"email,omitempty"`
	PendingCount      int        `json:"pendingCount"`
	LastSyncAt        *time.Time `json:"lastSyncAt,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	IsSyncing         bool       `json:"isSyncing"`
	RealtimeConnected bool       `json:"realtimeConnected"`
}
