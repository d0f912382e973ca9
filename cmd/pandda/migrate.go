package main

import (
	"github.com/spf13/cobra"

	"github.com/xraph/pandda/store/driver"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := driver.Open(ctx, c.cfg.Pandda.Store)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			c.logger.Info("migrations applied", "driver", c.cfg.Pandda.Store.Driver)
			return nil
		},
	}
}
