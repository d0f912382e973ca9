package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/id"
)

func newRenewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "renew SUBSCRIPTION_ID",
		Short: "Extend a subscription by one plan period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := id.ParseSubscriptionID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := c.openEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = e.Stop() }()

			sub, err := e.RenewSubscription(ctx, pandda.SystemActor, subID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "%s now due %s\n", sub.ID, sub.DueDate.Format(time.DateOnly))
			return err
		},
	}
}
