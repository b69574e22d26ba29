package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/playcache/internal/models"
)

// PassRecorder implements tasks.PassRecorder using [SyncPassRepository].
//
// A pass is inserted when it begins and updated with its outcome when it ends.
type PassRecorder struct {
	repo *SyncPassRepository
}

// NewPassRecorder creates a new PassRecorder with the given repository
func NewPassRecorder(repo *SyncPassRepository) *PassRecorder {
	return &PassRecorder{repo: repo}
}

// Begin stores a running pass.
func (r *PassRecorder) Begin(ctx context.Context, pass *models.SyncPass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.repo.Create(pass); err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}
	return nil
}

// End stores the outcome of a pass. A pass that was never stored is inserted instead.
func (r *PassRecorder) End(ctx context.Context, pass *models.SyncPass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pass.Sequence() == 0 {
		return r.repo.Create(pass)
	}
	if err := r.repo.Update(pass); err != nil {
		return fmt.Errorf("failed to record pass result: %w", err)
	}
	return nil
}
