package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config pointing at a fresh SQLite file.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "skilltree.toml")
	body := "[database]\npath = \"" + filepath.ToSlash(filepath.Join(dir, "db", "skilltree.db")) + "\"\n" +
		"[progression]\ntimezone = \"UTC\"\n" +
		"[log]\nlevel = \"ERROR\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, "catalog")
	require.NoError(t, err)

	assert.Contains(t, out, "SKILL")
	assert.Contains(t, out, "Strength")
	assert.Contains(t, out, "2:Pebble Lifter")
	assert.Contains(t, out, "3:First Rep")
	assert.Contains(t, out, "daily challenges: Gym, Running, Reading, Work")
}

func TestResetCommand_OncePerDate(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "reset", "--date", "2026-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "daily challenges reset for 2026-03-01")

	out, err = run(t, "--config", cfg, "reset", "--date", "2026-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "already reset for 2026-03-01")
}

func TestResetCommand_EarlierDateIsNoop(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "reset", "--date", "2026-03-02")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "reset", "--date", "2026-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "last reset was 2026-03-02, later than 2026-03-01; nothing to do")

	out, err = run(t, "--config", cfg, "reset", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "already reset for 2026-03-02")
}

func TestResetCommand_BadDate(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "reset", "--date", "March 1st")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 0\n"), 0o600))

	_, err := run(t, "--config", path, "catalog")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "launch")
	assert.Error(t, err)
}
