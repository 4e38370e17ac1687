package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/livetodo/internal/remote"
)

// Run opens the feed, shows the screen until the user quits or ctx ends,
// and closes the feed on every way out.
func Run(ctx context.Context, store remote.Store, opts Options, progOpts ...tea.ProgramOption) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	sub, err := store.Subscribe(ctx)
	if err != nil {
		opts.Logger.Warn("subscribe failed", "err", err)
		opts.SubscribeErr = err
	} else {
		defer func() {
			if cerr := sub.Close(); cerr != nil {
				opts.Logger.Warn("closing feed", "err", cerr)
			}
		}()
	}

	m := New(store, sub, opts)
	progOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, progOpts...)
	p := tea.NewProgram(m, progOpts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
