package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

const passColumns = `id, sequence, manifest_url, cache_dir, strategy, status, items_total, items_cached,
	items_completed, error_message, started_at, finished_at, created_at, updated_at, deleted_at`

// SyncPassRepository implements models.Repository[*models.SyncPass].
type SyncPassRepository struct {
	db *sql.DB
}

// NewSyncPassRepository creates a new SyncPassRepository with the given database connection
func NewSyncPassRepository(db *sql.DB) *SyncPassRepository {
	return &SyncPassRepository{db: db}
}

// Create inserts a new [models.SyncPass] with a generated sequence. An empty ID is generated too.
func (r *SyncPassRepository) Create(pass *models.SyncPass) error {
	if err := pass.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_passes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	pass.SetSequence(sequence)

	if pass.ID() == "" {
		pass.SetID(shared.GenerateID())
	}

	query := `
		INSERT INTO sync_passes (id, sequence, manifest_url, cache_dir, strategy, status, items_total,
			items_cached, items_completed, error_message, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		pass.ID(),
		pass.Sequence(),
		pass.ManifestURL(),
		pass.CacheDir(),
		pass.Strategy(),
		string(pass.Status()),
		pass.ItemsTotal(),
		pass.ItemsCached(),
		pass.ItemsCompleted(),
		pass.ErrorMessage(),
		pass.StartedAt(),
		pass.FinishedAt(),
		pass.CreatedAt(),
		pass.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync pass: %w", err)
	}

	return nil
}

// Get retrieves a pass by ID, excluding soft-deleted passes
func (r *SyncPassRepository) Get(id string) (*models.SyncPass, error) {
	query := `SELECT ` + passColumns + ` FROM sync_passes WHERE id = ? AND deleted_at IS NULL`

	pass, err := scanPass(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPassNotFound, id)
	}
	return pass, err
}

// Update stores the status, counters and finish time of an existing pass
func (r *SyncPassRepository) Update(pass *models.SyncPass) error {
	if err := pass.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	pass.SetUpdatedAt(now)

	query := `
		UPDATE sync_passes
		SET status = ?, items_total = ?, items_cached = ?, items_completed = ?, error_message = ?,
			finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(pass.Status()),
		pass.ItemsTotal(),
		pass.ItemsCached(),
		pass.ItemsCompleted(),
		pass.ErrorMessage(),
		pass.FinishedAt(),
		now,
		pass.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync pass: %w", err)
	}

	return checkAffected(result, pass.ID())
}

// Delete soft-deletes a pass by ID
func (r *SyncPassRepository) Delete(id string) error {
	query := `UPDATE sync_passes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync pass: %w", err)
	}

	return checkAffected(result, id)
}

// List retrieves passes matching criteria, newest first, excluding soft-deleted passes.
//
// Supported criteria: "status" (string or [models.PassStatus]), "manifest_url" (string) and
// "limit" (int).
func (r *SyncPassRepository) List(criteria map[string]any) ([]*models.SyncPass, error) {
	query := `SELECT ` + passColumns + ` FROM sync_passes WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.PassStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	if manifestURL, ok := criteria["manifest_url"].(string); ok && manifestURL != "" {
		query += " AND manifest_url = ?"
		args = append(args, manifestURL)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync passes: %w", err)
	}
	defer rows.Close()

	var passes []*models.SyncPass
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, pass)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return passes, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanPass(s scanner) (*models.SyncPass, error) {
	var (
		id             string
		sequence       int
		manifestURL    string
		cacheDir       string
		strategy       string
		status         string
		itemsTotal     int
		itemsCached    int
		itemsCompleted int
		errorMessage   string
		startedAt      time.Time
		finishedAt     sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := s.Scan(&id, &sequence, &manifestURL, &cacheDir, &strategy, &status, &itemsTotal, &itemsCached,
		&itemsCompleted, &errorMessage, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync pass: %w", err)
	}

	pass := models.NewSyncPass(sequence, manifestURL, cacheDir, strategy)
	pass.SetID(id)
	pass.SetStatus(models.PassStatus(status))
	pass.SetCounts(itemsTotal, itemsCached, itemsCompleted)
	pass.SetErrorMessage(errorMessage)
	pass.SetStartedAt(startedAt)
	pass.SetCreatedAt(createdAt)
	pass.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		pass.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		pass.SetDeletedAt(&deletedAt.Time)
	}

	return pass, nil
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrPassNotFound, id)
	}
	return nil
}
