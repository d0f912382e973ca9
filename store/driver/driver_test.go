package driver_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda/store/driver"
	"github.com/xraph/pandda/store/memory"
	"github.com/xraph/pandda/store/sqlite"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     driver.Config
		wantErr bool
	}{
		{"empty is memory", driver.Config{}, false},
		{"sqlite", driver.Config{Driver: "sqlite", DSN: "pandda.db"}, false},
		{"sqlite without dsn", driver.Config{Driver: "sqlite"}, true},
		{"postgres alias", driver.Config{Driver: "PostgreSQL", DSN: "postgres://localhost/pandda"}, false},
		{"mongo without database", driver.Config{Driver: "mongo", DSN: "mongodb://localhost"}, true},
		{"mongo", driver.Config{Driver: "mongodb", DSN: "mongodb://localhost", Database: "pandda"}, false},
		{"unknown", driver.Config{Driver: "oracle"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	st, err := driver.Open(context.Background(), driver.Config{Driver: "oracle"})
	require.ErrorIs(t, err, driver.ErrUnknownDriver)
	assert.Nil(t, st)
}

func TestOpenMemory(t *testing.T) {
	st, err := driver.Open(context.Background(), driver.Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)
	assert.NoError(t, st.Close())
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := driver.Open(ctx, driver.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "pandda.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	assert.IsType(t, &sqlite.Store{}, st)
	require.NoError(t, st.Migrate(ctx))
	assert.NoError(t, st.Ping(ctx))
}
