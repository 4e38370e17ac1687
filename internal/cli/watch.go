package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/reconcile"
	"github.com/idilsaglam/livetodo/internal/ui"
)

var errFeedClosed = errors.New("live updates closed by the server")

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes to the list as they happen, until interrupted",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := store.Subscribe(ctx)
			if err != nil {
				return err
			}
			defer sub.Close()

			fetchCtx, cancel := a.call(cmd)
			todos, err := store.Fetch(fetchCtx)
			cancel()
			if err != nil {
				return err
			}
			rec := reconcile.New()
			rec.ApplyFetchResult(todos)
			done, pending := rec.Stats()
			ui.OK(fmt.Sprintf("watching %d todos (%d done, %d pending); ctrl+c to stop", rec.Len(), done, pending))

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-sub.Events():
					if !ok {
						if ctx.Err() != nil {
							return nil
						}
						if err := sub.Err(); err != nil {
							return err
						}
						return errFeedClosed
					}
					applied := rec.ApplyEvent(ev)
					a.log.Debug("feed event", "type", ev.Type, "applied", applied)
					fmt.Fprintln(out, eventLine(ev))
				}
			}
		},
	}
}
