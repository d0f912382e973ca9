package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xraph/pandda/config"
	"github.com/xraph/pandda/report"
	"github.com/xraph/pandda/store/driver"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "pandda.yaml")
	content := "pandda:\n" +
		"  timezone: UTC\n" +
		"  jwt_secret: test\n" +
		"  store:\n" +
		"    driver: sqlite\n" +
		"    dsn: " + filepath.Join(dir, "pandda.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAndExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	_, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)

	t.Setenv("PANDDA_BOOTSTRAP_PASSWORD", "hunter22")
	out, err := run(t, "--config", cfg, "bootstrap", "--email", "root@pandda.test")
	require.NoError(t, err)
	assert.Contains(t, out, "root@pandda.test")

	_, err = run(t, "--config", cfg, "bootstrap", "--email", "other@pandda.test")
	assert.Error(t, err)

	xlsx := filepath.Join(dir, "customers.xlsx")
	out, err = run(t, "--config", cfg, "export", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 0 customers")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(report.CustomersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRenewRejectsBadID(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	_, err := run(t, "--config", cfg, "renew", "not-an-id")
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, t.TempDir()))
	require.NoError(t, err)
	cfg.Pandda.Store = driver.Config{Driver: driver.Memory}
	cfg.HTTP.Addr = "127.0.0.1:0"

	c := &cli{cfg: cfg, logger: newLogger(&bytes.Buffer{}, false), out: &bytes.Buffer{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := prometheus.NewRegistry()
	assert.NoError(t, c.serve(ctx, reg, reg))
}
