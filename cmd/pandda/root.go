package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/config"
	"github.com/xraph/pandda/store/driver"
)

// cli carries what every subcommand needs once the root has run.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{out: os.Stdout}

	root := &cobra.Command{
		Use:           "pandda",
		Short:         "Subscription provisioning back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			c.logger = newLogger(cmd.ErrOrStderr(), cfg.IsDev())
			c.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is ./pandda.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newBootstrapCmd(c),
		newExportCmd(c),
		newRenewCmd(c),
	)
	return root
}

func newLogger(w io.Writer, dev bool) *slog.Logger {
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openEngine opens the configured store and builds a started engine. The
// returned engine owns the store; Stop closes it.
func (c *cli) openEngine(ctx context.Context, opts ...pandda.Option) (*pandda.Engine, error) {
	st, err := driver.Open(ctx, c.cfg.Pandda.Store)
	if err != nil {
		return nil, err
	}
	loc, err := c.cfg.Pandda.Location()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	base := []pandda.Option{
		pandda.WithLogger(c.logger),
		pandda.WithLocation(loc),
		pandda.WithLockTimeout(c.cfg.Pandda.LockTimeout),
		pandda.WithUndoTimeout(c.cfg.Pandda.UndoTimeout),
	}
	e := pandda.New(st, append(base, opts...)...)
	if err := e.Start(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return e, nil
}
