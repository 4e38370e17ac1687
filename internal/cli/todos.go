package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/editor"
	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/reconcile"
	"github.com/idilsaglam/livetodo/internal/remote"
	"github.com/idilsaglam/livetodo/internal/ui"
)

// call bounds one remote operation by the configured request timeout.
func (a *app) call(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := 10 * time.Second
	if a.cfg != nil && a.cfg.RequestTimeout > 0 {
		timeout = a.cfg.RequestTimeout
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("not a todo id: %s", s)
	}
	return id, nil
}

// notFound adds the ls hint to a missing-row failure.
func notFound(id int64, err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		ui.Hint("Hint: run `todo ls` to see valid ids")
		return fmt.Errorf("no todo #%d", id)
	}
	return err
}

func (a *app) lsCmd() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := a.call(cmd)
			defer cancel()
			todos, err := store.Fetch(ctx)
			if err != nil {
				return err
			}
			ui.Panel(listLines(todos, group))
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <task...>",
		Short: "Add a todo (the task can be several words)",
		Example: `  todo add "Buy milk"
  todo add Call the plumber`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ed editor.Controller
			ed.SetText(strings.Join(args, " "))
			in, err := ed.Submit()
			if err != nil {
				return usageError{err}
			}
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := a.call(cmd)
			defer cancel()
			t, err := store.Insert(ctx, in.Task)
			if err != nil {
				return err
			}
			ui.OK(fmt.Sprintf("added #%d %s", t.ID, t.Task))
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "edit <id> <task...>",
		Short:   "Replace the task text of a todo",
		Example: `  todo edit 3 "Buy oat milk"`,
		Args:    usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var ed editor.Controller
			ed.BeginEdit(model.Todo{ID: id})
			ed.SetText(strings.Join(args[1:], " "))
			in, err := ed.Submit()
			if err != nil {
				return usageError{err}
			}
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := a.call(cmd)
			defer cancel()
			t, err := store.Update(ctx, in.ID, model.TaskPatch(in.Task))
			if err != nil {
				return notFound(id, err)
			}
			ui.OK(fmt.Sprintf("edited #%d %s", t.ID, t.Task))
			return nil
		},
	}
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a todo between pending and done",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := a.call(cmd)
			defer cancel()

			todos, err := store.Fetch(ctx)
			if err != nil {
				return err
			}
			rec := reconcile.New()
			rec.ApplyFetchResult(todos)
			cur, ok := rec.Get(id)
			if !ok {
				return notFound(id, remote.ErrNotFound)
			}
			t, err := store.Update(ctx, id, model.DonePatch(!cur.Done))
			if err != nil {
				return notFound(id, err)
			}
			if t.Done {
				ui.OK(fmt.Sprintf("done #%d %s", t.ID, t.Task))
			} else {
				ui.OK(fmt.Sprintf("reopened #%d %s", t.ID, t.Task))
			}
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := a.call(cmd)
			defer cancel()
			if err := store.Delete(ctx, id); err != nil {
				return notFound(id, err)
			}
			ui.OK(fmt.Sprintf("removed #%d", id))
			return nil
		},
	}
}
