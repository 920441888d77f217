package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
	"github.com/desertthunder/marquee/internal/ui"
)

// TUI launches the interactive browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	shared.ConfigureLogger(fileLogger, r.config.Logging)
	r.SetLogger(fileLogger)

	s, err := r.session()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Deps{
		Store:        s.store,
		Catalog:      r.catalog,
		Synchronizer: s.synchronizer,
		Hydrator:     s.hydrator,
		Composer:     s.composer,
		Presenter:    s.presenter,
		Feed:         s.feed,
		Reminders:    r.backend,
		Rows:         tasks.DefaultRows(r.config.Catalog.Region, r.config.Rows.Categories, time.Now().Year()),
		Region:       r.config.Catalog.Region,
		Debounce:     r.config.Search.Debounce,
		PlayerURL:    r.config.Catalog.PlayerURL,
		Logger:       fileLogger,
		OpenURL:      r.openURL,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
