package sync

import (
	"context"
	gosync "sync"
	"time"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/remote"
)

// Messages surfaced to callers as non-fatal sync warnings.
const (
	msgSignInRequired = "Sign in with email/password to sync across devices"
	msgSyncInProgress = "sync already in progress"
	msgNotConfigured  = "remote store is not configured"
)

// Engine owns process-wide sync state and enforces single-flight execution.
// It is safe to invoke from multiple triggers (app resume, periodic timer,
// manual sync) concurrently: a second trigger while a pass is running is
// rejected rather than interleaved.
type Engine struct {
	store  MealStore
	remote RemoteStore
	auth   AuthProvider

	mu         gosync.Mutex
	syncing    bool
	session    *remote.Session
	sub        RealtimeSubscription
	realtimeUp bool
	lastSyncAt *time.Time
	lastError  string
}

// NewEngine creates the sync engine. A nil remote store means the process
// runs local-only; sync attempts report a configuration error instead of
// touching the network.
func NewEngine(mealStore MealStore, remoteStore RemoteStore, auth AuthProvider) *Engine {
	return &Engine{
		store:  mealStore,
		remote: remoteStore,
		auth:   auth,
	}
}

// RestoreSession installs a previously persisted session (typically an
// anonymous one) without contacting the auth provider.
func (e *Engine) RestoreSession(session *remote.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = session
	if e.remote != nil && session != nil {
		e.remote.SetToken(session.Token)
	}
}

// GetSyncStatus assembles a status snapshot from the current auth state and
// queue length. No network calls are made; the snapshot is rebuilt on every
// call and only the syncing flag has cross-call memory.
func (e *Engine) GetSyncStatus() models.SyncStatusSnapshot {
	e.mu.Lock()
	session := e.session
	syncing := e.syncing
	realtimeUp := e.realtimeUp
	lastSyncAt := e.lastSyncAt
	lastError := e.lastError
	e.mu.Unlock()

	status := models.SyncStatusSnapshot{
		IsConfigured:      e.remote != nil,
		IsSyncing:         syncing,
		RealtimeConnected: realtimeUp,
		LastSyncAt:        lastSyncAt,
		LastError:         lastError,
	}

	if session != nil {
		status.IsAuthenticated = true
		status.IsAnonymous = session.IsAnonymous
		status.UserID = session.UID
		status.Email = session.Email
	}

	if count, err := e.store.CountSyncQueue(); err == nil {
		status.PendingCount = count
	} else {
		logging.Warn("failed to count sync queue for status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return status
}

// SyncNow runs one guarded push-then-pull cycle. It requires an
// authenticated, non-anonymous session and never interleaves with another
// running cycle; guard failures return synchronously with zero counts and
// no network I/O.
func (e *Engine) SyncNow(ctx context.Context) *SyncResult {
	e.mu.Lock()
	if e.remote == nil {
		e.mu.Unlock()
		return &SyncResult{Errors: []string{msgNotConfigured}}
	}
	session := e.session
	if session == nil || session.IsAnonymous {
		e.mu.Unlock()
		return &SyncResult{Errors: []string{msgSignInRequired}}
	}
	if e.syncing {
		e.mu.Unlock()
		return &SyncResult{Errors: []string{msgSyncInProgress}}
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	return e.runCycle(ctx, session.UID)
}

// runCycle executes push then pull, sequentially, and aggregates results.
// The caller must hold the syncing flag.
func (e *Engine) runCycle(ctx context.Context, uid string) *SyncResult {
	result := &SyncResult{Errors: []string{}}

	flush := e.FlushSyncQueue(ctx, uid)
	result.Pushed = flush.Pushed
	for _, entryErr := range flush.Errors {
		result.Errors = append(result.Errors, entryErr.String())
	}

	pull := e.InitialPullAndMerge(ctx, uid)
	result.Pulled = pull.Pulled
	for _, entryErr := range pull.Errors {
		result.Errors = append(result.Errors, entryErr.String())
	}

	now := time.Now()
	e.mu.Lock()
	e.lastSyncAt = &now
	if len(result.Errors) > 0 {
		e.lastError = result.Errors[0]
	} else {
		e.lastError = ""
	}
	e.mu.Unlock()

	logging.Info("sync cycle completed", map[string]interface{}{
		"uid":    uid,
		"pushed": result.Pushed,
		"pulled": result.Pulled,
		"errors": len(result.Errors),
	})

	return result
}

// SignInWithEmailPassword delegates to the auth collaborator. On success,
// every queue entry attributed to the prior (typically anonymous) uid is
// reassigned to the new uid before any flush, so offline edits made before
// sign-in are preserved under the authenticated identity. A full sync cycle
// then runs and the realtime listener attaches; sync failures are reported
// in the result, never as an error.
//
// Sign-in takes the same single-flight guard as SyncNow, and takes it
// before contacting the auth provider: queue reassignment must never
// interleave with a running flush. A sign-in attempted while a pass is
// running is rejected; the caller retries once the pass settles.
func (e *Engine) SignInWithEmailPassword(ctx context.Context, email, password string) (*SyncResult, error) {
	if e.auth == nil || e.remote == nil {
		return nil, apperrors.New(apperrors.ErrNotAuthenticated, msgNotConfigured)
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrConcurrentSync, msgSyncInProgress)
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	session, err := e.auth.SignInEmail(ctx, email, password)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	priorUID := ""
	if e.session != nil {
		priorUID = e.session.UID
	}
	e.session = session
	e.mu.Unlock()

	e.remote.SetToken(session.Token)

	if priorUID != session.UID {
		if err := e.store.AssignSyncQueueTargetUID(priorUID, session.UID); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to reassign sync queue owner", err)
		}
	}

	logging.Info("signed in, starting sync", map[string]interface{}{
		"uid":       session.UID,
		"prior_uid": priorUID,
	})

	result := e.runCycle(ctx, session.UID)

	if err := e.startRealtime(ctx, session.UID); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	return result, nil
}

// SignOutAndStopSync tears down the realtime subscription and clears the
// in-memory session. Local records and the sync queue are retained for the
// next sign-in.
func (e *Engine) SignOutAndStopSync(ctx context.Context) error {
	e.stopRealtime()

	e.mu.Lock()
	e.session = nil
	e.lastError = ""
	e.mu.Unlock()

	if e.remote != nil {
		e.remote.SetToken("")
	}

	if e.auth != nil {
		if err := e.auth.SignOutUser(ctx); err != nil {
			logging.Warn("remote sign-out failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	logging.Info("signed out, sync stopped", nil)
	return nil
}
