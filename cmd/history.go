package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playcache/internal/formatter"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/repositories"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints recorded sync passes, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	status := models.PassStatus(cmd.String("status"))
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status != "" {
		criteria["status"] = status
	}

	passes, err := repositories.NewSyncPassRepository(db).List(criteria)
	if err != nil {
		return err
	}

	out, err := formatter.FormatPasses(passes, cmd.String("format"))
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}
