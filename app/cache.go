package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() { //nolint: gochecknoinits
	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the cache of resolved grants",
	}

	cacheFlushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Drop every cached grant, e.g. after editing roles directly in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			d.AuthService.InvalidateAll(cmd.Context())

			fmt.Fprintln(cmd.OutOrStdout(), "grant cache flushed")

			return nil
		},
	}
)
