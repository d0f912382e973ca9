// Package driver opens a store backend by name.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/store/memory"
	"github.com/xraph/pandda/store/mongo"
	"github.com/xraph/pandda/store/postgres"
	"github.com/xraph/pandda/store/sqlite"
)

// Backend names.
const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Mongo    = "mongo"
)

// ErrUnknownDriver is returned by Open for a driver name it does not know.
var ErrUnknownDriver = errors.New("pandda/driver: unknown driver")

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, sqlite, postgres or mongo. Empty means memory.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the sqlite file path, the postgres connection string or the
	// mongo URI.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database names the mongo database.
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// MaxConns caps the postgres pool. Zero keeps the pgx default.
	MaxConns int32 `json:"max_conns" mapstructure:"max_conns" yaml:"max_conns"`

	// Debug logs every sqlite query.
	Debug bool `json:"debug" mapstructure:"debug" yaml:"debug"`
}

// Validate reports a config Open would reject.
func (c Config) Validate() error {
	switch c.driver() {
	case Memory:
		return nil
	case SQLite, Postgres:
		if c.DSN == "" {
			return fmt.Errorf("pandda/driver: %s needs a dsn", c.driver())
		}
		return nil
	case Mongo:
		if c.DSN == "" || c.Database == "" {
			return errors.New("pandda/driver: mongo needs a dsn and a database")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
}

func (c Config) driver() string {
	d := strings.ToLower(strings.TrimSpace(c.Driver))
	switch d {
	case "":
		return Memory
	case "postgresql", "pg":
		return Postgres
	case "mongodb":
		return Mongo
	}
	return d
}

// Open connects the configured backend. The caller owns the returned store
// and must Close it.
func Open(ctx context.Context, cfg Config) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.driver() {
	case SQLite:
		var opts []sqlite.Option
		if cfg.Debug {
			opts = append(opts, sqlite.WithDebug(true))
		}
		st, err = openAs(sqlite.Open(cfg.DSN, opts...))
	case Postgres:
		var opts []postgres.Option
		if cfg.MaxConns > 0 {
			opts = append(opts, postgres.WithMaxConns(cfg.MaxConns))
		}
		st, err = openAs(postgres.Open(ctx, cfg.DSN, opts...))
	case Mongo:
		st, err = openAs(mongo.Open(cfg.DSN, cfg.Database))
	default:
		st = memory.New()
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// openAs keeps a failed open from returning a typed nil inside the
// interface.
func openAs[S store.Store](s S, err error) (store.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
