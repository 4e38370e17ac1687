package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/snapshot"
	"github.com/idilsaglam/livetodo/internal/ui"
)

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the list to a JSON snapshot",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := snapshotPath(out)
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
			if err := snapshot.Save(path, todos); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			ui.OK(fmt.Sprintf("exported %d todos to %s", len(todos), path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "snapshot file (default ./todos.json)")
	return cmd
}

// importCmd adds every snapshot task as a new row; ids are assigned by the
// store, so importing twice duplicates the tasks.
func (a *app) importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add the tasks of a JSON snapshot to the list",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := snapshotPath(file)
			if err != nil {
				return err
			}
			todos, err := snapshot.Load(path)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			store, err := a.open(cmd, true)
			if err != nil {
				return err
			}

			added := 0
			for _, t := range todos {
				task := strings.TrimSpace(t.Task)
				if task == "" {
					a.log.Warn("import: skipping empty task", "id", t.ID)
					continue
				}
				ctx, cancel := a.call(cmd)
				got, err := store.Insert(ctx, task)
				if err == nil && t.Done {
					_, err = store.Update(ctx, got.ID, model.DonePatch(true))
				}
				cancel()
				if err != nil {
					return fmt.Errorf("import %q after %d added: %w", task, added, err)
				}
				added++
			}
			ui.OK(fmt.Sprintf("imported %d todos from %s", added, path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file (default ./todos.json)")
	return cmd
}

func snapshotPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return snapshot.DefaultPath()
}
