package extension

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda/store/driver"
	"github.com/xraph/pandda/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := MergeWithDefaults(Config{BasePath: "/backoffice", LockTimeout: time.Second})

	assert.Equal(t, "/backoffice", cfg.BasePath)
	assert.Equal(t, time.Second, cfg.LockTimeout)
	assert.Equal(t, 30*time.Second, cfg.UndoTimeout)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, driver.Memory, cfg.Store.Driver)
}

func TestMergeConfigurations(t *testing.T) {
	file := Config{BasePath: "/from-file", Store: driver.Config{Driver: "sqlite", DSN: "pandda.db"}}
	prog := Config{
		BasePath:       "/from-code",
		DisableMigrate: true,
		JWTSecret:      "s3cret",
		UndoTimeout:    5 * time.Second,
		Store:          driver.Config{Driver: "postgres", DSN: "postgres://x"},
	}

	cfg := MergeConfigurations(file, prog)

	assert.Equal(t, "/from-file", cfg.BasePath)
	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.UndoTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestBuild(t *testing.T) {
	t.Run("routes need a secret", func(t *testing.T) {
		e := New(WithStore(memory.New()))
		e.config = MergeWithDefaults(e.config)
		assert.Error(t, e.build(context.Background()))
	})

	t.Run("handler under base path", func(t *testing.T) {
		e := New(WithStore(memory.New()), WithJWTSecret("s3cret"), WithTimezone("UTC"))
		e.config = MergeWithDefaults(e.config)
		require.NoError(t, e.build(context.Background()))
		assert.NotNil(t, e.Engine())
		assert.NotNil(t, e.Handler())
	})

	t.Run("routes disabled", func(t *testing.T) {
		e := New(WithDisableRoutes(), WithTimezone("UTC"))
		e.config = MergeWithDefaults(e.config)
		require.NoError(t, e.build(context.Background()))
		assert.NotNil(t, e.Engine())
		assert.Nil(t, e.Handler())
		assert.IsType(t, &memory.Store{}, e.store)
	})

	t.Run("bad timezone", func(t *testing.T) {
		e := New(WithDisableRoutes(), WithTimezone("Mars/Olympus"))
		e.config = MergeWithDefaults(e.config)
		assert.Error(t, e.build(context.Background()))
	})

	t.Run("unknown driver", func(t *testing.T) {
		e := New(WithDisableRoutes(), WithStoreConfig(driver.Config{Driver: "oracle"}))
		e.config = MergeWithDefaults(e.config)
		assert.ErrorIs(t, e.build(context.Background()), driver.ErrUnknownDriver)
	})
}
