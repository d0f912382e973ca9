package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/renewal"
	"github.com/xraph/pandda/report"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		out    string
		window string
		sort   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export customers and due dates to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := c.openEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = e.Stop() }()

			overviews, err := e.ListCustomerOverviews(ctx, pandda.OverviewQuery{
				Window: renewal.Window(window),
				Sort:   pandda.SortOrder(sort),
			})
			if err != nil {
				return err
			}
			loc, err := c.cfg.Pandda.Location()
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := report.WriteCustomers(f, overviews, report.Options{Location: loc}); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "wrote %d customers to %s\n", len(overviews), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "customers.xlsx", "output file")
	cmd.Flags().StringVar(&window, "window", "", "expiry window: current, due_soon, overdue, long_overdue or overdue_all")
	cmd.Flags().StringVar(&sort, "sort", string(pandda.SortByDueDate), "sort order: due_date or name")
	return cmd
}
