package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/xraph/pandda"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("%w: pandda/sqlite: %w", pandda.ErrMigrationFailed, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("%w: pandda/sqlite: %w", pandda.ErrMigrationFailed, err)
	}
	return nil
}
