package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/desertthunder/playcache/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// TUI runs a pass under the interactive terminal UI, then shows the slideshow.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("%w: ui needs an interactive terminal, use 'sync run' instead", shared.ErrInvalidInput)
	}

	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(config.Logging.Level))
	r.SetLogger(fileLogger)

	engine, release := r.newEngine(config)
	defer release()

	model := ui.NewModel(ctx, ui.Opts{
		Engine:      engine,
		ManifestURL: config.Sync.ManifestURL,
		CacheDir:    config.Sync.CacheDir,
		Interval:    config.Slideshow.Interval,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
