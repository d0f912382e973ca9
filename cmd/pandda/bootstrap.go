package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBootstrapCmd(c *cli) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first master admin",
		Long:  "Create the first master admin. The password is read from PANDDA_BOOTSTRAP_PASSWORD.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("PANDDA_BOOTSTRAP_PASSWORD")
			if password == "" {
				return errors.New("PANDDA_BOOTSTRAP_PASSWORD is not set")
			}

			ctx := cmd.Context()
			e, err := c.openEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = e.Stop() }()

			a, err := e.Bootstrap(ctx, email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "created master admin %s (%s)\n", a.Email, a.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
