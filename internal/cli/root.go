// Package cli is the todo command line. With no subcommand it opens the
// interactive screen; subcommands run one remote operation and exit.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/config"
	"github.com/idilsaglam/livetodo/internal/remote"
	"github.com/idilsaglam/livetodo/internal/tui"
	"github.com/idilsaglam/livetodo/internal/ui"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks mistakes in how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// usageArgs turns a cobra argument validator's error into a usage error.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// app holds what a single invocation opens, so it can all be closed at the end.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configDir string
	theme     string

	cfg     *config.Config
	log     *slog.Logger
	store   remote.Store
	cleanup []func() error
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ui.Out, ui.Err = stdout, stderr
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	ui.Fail(err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		ui.Hint("Run `todo --help` for usage.")
		return ExitUsage
	}
	return ExitError
}

// Main is Execute wired to the process.
func Main(ctx context.Context) int {
	return Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "A todo list that stays in sync with its hosted table",
		Long: `todo keeps a list of tasks in a hosted table and follows changes made
by other clients in real time.

Run without a subcommand to open the interactive list.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.theme == "" {
				return nil
			}
			if err := ui.SetTheme(a.theme); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: a.runTUI,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "config directory (default $LIVETODO_CONFIG_DIR or ~/.config/livetodo)")
	pf.StringVar(&a.theme, "theme", "", "color theme: "+strings.Join(ui.Themes(), ", "))
	pf.Bool("debug", false, "log at debug level")
	pf.String("backend", "", "store backend: supabase or sqlite")
	pf.String("log-file", "", "append logs to this file")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		a.lsCmd(),
		a.addCmd(),
		a.editCmd(),
		a.doneCmd(),
		a.rmCmd(),
		a.watchCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.authCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	store, err := a.open(cmd, false)
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), store, tui.Options{
		Timeout: a.cfg.RequestTimeout,
		Logger:  a.log,
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "todo "+Version)
		},
	}
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.log.Warn("cleanup", "err", err)
		}
	}
	a.cleanup = nil
}
