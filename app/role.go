package app

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/daemon"
)

func init() { //nolint: gochecknoinits
	assignCmd.Flags().DurationVar(&assignFor, "for", 0, "Let the assignment expire after this duration (e.g. 720h)")
	assignCmd.Flags().StringVar(&assignBy, "by", "cli", "Recorded as the administrator granting the role")

	roleCmd.AddCommand(roleListCmd, assignCmd, revokeCmd)
	rootCmd.AddCommand(roleCmd)
}

var (
	assignFor time.Duration
	assignBy  string

	roleCmd = &cobra.Command{
		Use:   "role",
		Short: "Inspect roles and manage user role assignments",
	}

	roleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List roles with their permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()

			roles, err := d.AuthService.Roles.ListRoles(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0) //nolint:mnd
			fmt.Fprintln(w, "ID\tNAME\tSYSTEM\tPERMISSIONS")

			for _, r := range roles {
				perms, err := d.AuthService.Roles.ListRolePermissions(ctx, r.ID)
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%d\t%s\t%t\t%v\n", r.ID, r.Name, r.IsSystem, perms)
			}

			return w.Flush()
		},
	}

	assignCmd = &cobra.Command{
		Use:   "assign <user-id> <role>",
		Short: "Assign a role to a user",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()

			role, err := d.AuthService.Roles.GetRoleByName(ctx, args[1])
			if err != nil {
				return err
			}

			opts := []auth.AssignOption{auth.WithAssignedBy(assignBy)}
			if assignFor > 0 {
				opts = append(opts, auth.WithExpiry(time.Now().Add(assignFor)))
			}

			if err = d.AuthService.Assignments.Assign(ctx, args[0], role.ID, opts...); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s\n", role.Name, args[0])

			return nil
		},
	}

	revokeCmd = &cobra.Command{
		Use:   "revoke <user-id> <role>",
		Short: "Revoke a role from a user",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()

			role, err := d.AuthService.Roles.GetRoleByName(ctx, args[1])
			if err != nil {
				return err
			}

			if err = d.AuthService.Assignments.Revoke(ctx, args[0], role.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", role.Name, args[0])

			return nil
		},
	}
)

func openDaemon(cmd *cobra.Command) (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return daemon.Open(cmd.Context(), cfg)
}
