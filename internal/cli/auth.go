package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/auth"
	"github.com/idilsaglam/livetodo/internal/ui"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the access token sent to the hosted store",
		Long: `The access token (a user JWT) is sent as the bearer for REST calls and
live updates. Without one the project's anon key is used.

` + auth.EnvToken + ` overrides the saved token.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: todo auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(a.loginCmd(), a.logoutCmd(), a.statusCmd(), a.whoamiCmd())
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Save an access token (read from stdin when not given)",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "Paste your token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			if err := auth.SetToken(token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			ui.OK("logged in")
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved access token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, _ := auth.GetToken()
			if ti != nil && ti.Source == auth.SourceEnv {
				ui.OK("token is provided by " + auth.EnvToken + " (nothing to delete)")
				return nil
			}
			if err := auth.DeleteToken(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK("logged out")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the access token comes from and when it expires",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ti, err := auth.GetToken()
			if err != nil {
				return err
			}
			if ti == nil {
				fmt.Fprintln(out, ui.C(ui.Current().Muted, "not logged in (using the anon key)"))
				fmt.Fprintln(out, "Run: todo auth login")
				return nil
			}
			fmt.Fprintf(out, "source: %s\n", ti.Source)
			switch {
			case ti.ExpiresAt == nil:
				fmt.Fprintln(out, "expires: (unknown)")
			case ti.ExpiresAt.Before(time.Now()):
				fmt.Fprintf(out, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339),
					ui.C(ui.Current().Error, "(expired)"))
			default:
				fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(out, "env override: "+auth.EnvToken)
			return nil
		},
	}
}

// whoamiCmd decodes the JWT payload locally without verifying it.
func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the claims of the access token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ti, _ := auth.GetToken()
			if ti == nil {
				return usagef("not logged in. Run: todo auth login")
			}
			claims, err := auth.Claims(ti.Token)
			if err != nil {
				fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
				fmt.Fprintln(out, "source:", ti.Source)
				return nil
			}
			keys := make([]string, 0, len(claims))
			for k := range claims {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				v, _ := json.Marshal(claims[k])
				fmt.Fprintf(out, "%s: %s\n", k, v)
			}
			return nil
		},
	}
}
