package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/drillvoice/recipe-tracker-sub001/internal/models"
	"github.com/drillvoice/recipe-tracker-sub001/internal/uuid"
)

// Store provides meal and sync queue operations over a single SQLite
// database. It is the single local replica the sync engine reconciles
// against the remote authority.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store instance.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveOptions controls side effects of local writes.
type SaveOptions struct {
	// SkipSyncQueue suppresses the sync queue entry for this write. Used
	// when the write originates from the remote store and is already
	// authoritative.
	SkipSyncQueue bool
}

// MealPatch is a partial update to a meal. Nil fields are left unchanged.
type MealPatch struct {
	Name    *string
	EatenAt *int64
	Hidden  *bool
	Tags    *[]string
}

const mealColumns = `id, owner_uid, name, eaten_at, hidden, tags, updated_at_ms, pending, sync_state`

// SaveMeal persists a new meal. Unless suppressed, a create entry is
// appended to the sync queue so the next flush pushes it to the remote
// store.
func (s *Store) SaveMeal(meal *models.Meal, opts SaveOptions) error {
	if meal.ID == "" {
		meal.ID = models.UUID(uuid.New())
	}
	if meal.UpdatedAtMs == 0 {
		meal.Touch()
	}
	if meal.SyncState == "" {
		meal.SyncState = models.SyncStateLocalOnly
	}
	if !opts.SkipSyncQueue {
		meal.Pending = true
		meal.SyncState = models.SyncStatePending
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMealRow(tx, meal); err != nil {
		return err
	}

	if !opts.SkipSyncQueue {
		entry, err := models.NewSyncQueueEntry(models.OperationCreate, meal, meal.OwnerUID)
		if err != nil {
			return err
		}
		if err := enqueue(tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateMeal applies a patch to an existing meal, advances its logical
// clock, and unless suppressed appends an update entry to the sync queue.
func (s *Store) UpdateMeal(id string, patch MealPatch, opts SaveOptions) error {
	meal, err := s.GetMealByID(id)
	if err != nil {
		return err
	}
	if meal == nil {
		return fmt.Errorf("meal not found: %s", id)
	}

	if patch.Name != nil {
		meal.Name = *patch.Name
	}
	if patch.EatenAt != nil {
		meal.EatenAt = *patch.EatenAt
	}
	if patch.Hidden != nil {
		meal.Hidden = *patch.Hidden
	}
	if patch.Tags != nil {
		meal.Tags = append([]string(nil), (*patch.Tags)...)
	}
	meal.Touch()

	if !opts.SkipSyncQueue {
		meal.Pending = true
		meal.SyncState = models.SyncStatePending
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMealRow(tx, meal); err != nil {
		return err
	}

	if !opts.SkipSyncQueue {
		entry, err := models.NewSyncQueueEntry(models.OperationUpdate, meal, meal.OwnerUID)
		if err != nil {
			return err
		}
		if err := enqueue(tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteMeal removes a meal locally and, unless suppressed, appends a
// delete entry to the sync queue.
func (s *Store) DeleteMeal(id string, opts SaveOptions) error {
	meal, err := s.GetMealByID(id)
	if err != nil {
		return err
	}
	if meal == nil {
		return fmt.Errorf("meal not found: %s", id)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM meals WHERE id = ?`, id); err != nil {
		return err
	}

	if !opts.SkipSyncQueue {
		entry, err := models.NewSyncQueueEntry(models.OperationDelete, meal, meal.OwnerUID)
		if err != nil {
			return err
		}
		if err := enqueue(tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpsertMealFromCloud writes a remote record into the local store without
// enqueueing a further push; the remote copy is already authoritative.
func (s *Store) UpsertMealFromCloud(meal *models.Meal) error {
	meal.Pending = false
	meal.SyncState = models.SyncStateSynced

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMealRow(tx, meal); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteMealFromCloud removes a meal locally without enqueueing, used when
// the remote store reports the document deleted.
func (s *Store) DeleteMealFromCloud(id string) error {
	_, err := s.db.Exec(`DELETE FROM meals WHERE id = ?`, id)
	return err
}

// MarkMealSyncState updates a meal's sync bookkeeping fields only.
func (s *Store) MarkMealSyncState(id string, state models.SyncState, pending bool) error {
	result, err := s.db.Exec(
		`UPDATE meals SET sync_state = ?, pending = ? WHERE id = ?`,
		string(state), pending, id,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("meal not found: %s", id)
	}
	return nil
}

// GetMealByID retrieves a meal by id. Returns (nil, nil) when absent.
func (s *Store) GetMealByID(id string) (*models.Meal, error) {
	row := s.db.QueryRow(`SELECT `+mealColumns+` FROM meals WHERE id = ?`, id)
	meal, err := scanMeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return meal, nil
}

// GetAllMeals returns all meals ordered by eaten time, newest first.
func (s *Store) GetAllMeals() ([]*models.Meal, error) {
	rows, err := s.db.Query(`SELECT ` + mealColumns + ` FROM meals ORDER BY eaten_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeals(rows)
}

// GetClaimableMeals returns meals attributed to uid plus meals with no
// owner yet (created before any session existed). The pull engine claims
// these when they have no remote counterpart.
func (s *Store) GetClaimableMeals(uid string) ([]*models.Meal, error) {
	rows, err := s.db.Query(
		`SELECT `+mealColumns+` FROM meals WHERE owner_uid = ? OR owner_uid = '' ORDER BY eaten_at DESC, id`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeals(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeal(row rowScanner) (*models.Meal, error) {
	var meal models.Meal
	var tagsJSON string
	err := row.Scan(
		&meal.ID, &meal.OwnerUID, &meal.Name, &meal.EatenAt, &meal.Hidden,
		&tagsJSON, &meal.UpdatedAtMs, &meal.Pending, &meal.SyncState,
	)
	if err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &meal.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for meal %s: %w", meal.ID, err)
		}
	}
	return &meal, nil
}

func collectMeals(rows *sql.Rows) ([]*models.Meal, error) {
	var meals []*models.Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meals, nil
}

func upsertMealRow(tx *sql.Tx, meal *models.Meal) error {
	tags := meal.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags for meal %s: %w", meal.ID, err)
	}

	query := `
	INSERT INTO meals (id, owner_uid, name, eaten_at, hidden, tags, updated_at_ms, pending, sync_state)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_uid = excluded.owner_uid,
		name = excluded.name,
		eaten_at = excluded.eaten_at,
		hidden = excluded.hidden,
		tags = excluded.tags,
		updated_at_ms = excluded.updated_at_ms,
		pending = excluded.pending,
		sync_state = excluded.sync_state
	`
	_, err = tx.Exec(query, meal.ID, meal.OwnerUID, meal.Name, meal.EatenAt,
		meal.Hidden, string(tagsJSON), meal.UpdatedAtMs, meal.Pending, string(meal.SyncState))
	return err
}
