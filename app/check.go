package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(checkCmd, permissionsCmd)
}

var (
	checkCmd = &cobra.Command{
		Use:   "check <user-id> <requirement>",
		Short: "Decide a requirement for a user",
		Long: `Decide a requirement for a user and print the decision.

The requirement is "public", "permission:<code>" or "any_role:<ROLE>,<ROLE>".
Use an empty user id ("") for an anonymous caller.`,
		Example: `  accessctl check 42 permission:administrar
  accessctl check 42 any_role:ADMIN,INSCRITO`,
		Args: cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := auth.ParseRequirement(args[1])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d, err := daemon.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			dec, err := d.AuthService.Decide(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s", args[0], req, dec)

			if dec.Detail != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", dec.Detail)
			}

			fmt.Fprintln(cmd.OutOrStdout())

			return nil
		},
	}

	permissionsCmd = &cobra.Command{
		Use:   "permissions <user-id>",
		Short: "Print the effective permissions of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d, err := daemon.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			perms, err := d.AuthService.GetUserPermissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, p := range perms {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}

			return nil
		},
	}
)
