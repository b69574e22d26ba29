package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

var _ models.Repository[*models.SyncPass] = (*SyncPassRepository)(nil)

// sequenceTables lists the tables that own a <table>_sequence counter.
var sequenceTables = map[string]bool{
	"sync_passes": true,
}

// NextSequence atomically increments and returns the pass number for table.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("%w: no sequence for table %q", shared.ErrInvalidInput, table)
	}

	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sequence row missing for %s", table)
		}
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
