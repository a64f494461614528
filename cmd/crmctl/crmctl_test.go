package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/diewo77/go-crm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedStatsDelete(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	dsn := filepath.Join(t.TempDir(), "crm.db")
	base := []string{"--driver", "sqlite", "--dsn", dsn}

	out, err := runCLI(t, append([]string{"migrate"}, base...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema ready")

	out, err = runCLI(t, append([]string{"seed", "--samples", "--json"}, base...)...)
	require.NoError(t, err, out)
	var counts store.Counts
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, store.Counts{Clients: 3, Quotes: 5, FollowUps: 3}, counts)

	out, err = runCLI(t, append([]string{"stats"}, base...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "conversion")
	assert.Contains(t, out, "4+ relances")

	out, err = runCLI(t, append([]string{"pending"}, base...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "CABI-2024-001")
	assert.NotContains(t, out, "BATI-2024-002", "refused quotes are never pending")

	out, err = runCLI(t, append([]string{"delete-client", "1"}, base...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "deleted client 1")

	out, err = runCLI(t, append([]string{"stats", "--json"}, base...)...)
	require.NoError(t, err, out)
	var dash map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dash))
	assert.EqualValues(t, 2, dash["clients"])
	assert.EqualValues(t, 3, dash["total"])

	_, err = runCLI(t, append([]string{"delete-client", "1"}, base...)...)
	assert.ErrorContains(t, err, "not found")
}

func TestDeleteClientRejectsBadID(t *testing.T) {
	_, err := runCLI(t, "delete-client", "abc", "--driver", "memory")
	assert.ErrorContains(t, err, "invalid client id")
}

func TestConfigFile(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	dir := t.TempDir()
	path := filepath.Join(dir, "crmctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: memory\n"), 0o600))

	out, err := runCLI(t, "migrate", "--config", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "driver=memory")
}

func TestUnknownDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	_, err := runCLI(t, "migrate", "--driver", "oracle")
	assert.Error(t, err)
}
