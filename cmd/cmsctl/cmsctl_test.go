package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/headless-cms-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args against a fresh output buffer
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func useTempStore(t *testing.T) {
	t.Helper()
	t.Setenv("CMS_CONFIG_FILE", "")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cms.db"))
	t.Setenv("SETTINGS_SAVE_DELAY", "0s")
}

func TestFieldTypesCommand(t *testing.T) {
	out, err := run(t, "field-types")
	require.NoError(t, err)
	assert.Contains(t, out, "dynamic-zone")
	assert.Contains(t, out, "TYPE")

	out, err = run(t, "field-types", "--category", "relation")
	require.NoError(t, err)
	assert.Contains(t, out, "relation")
	assert.NotContains(t, out, "richtext")

	_, err = run(t, "field-types", "--category", "holograms")
	assert.Error(t, err)
}

func TestImportExportCycle(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "import", "--in", filepath.Join("..", "..", "testdata", "blog_bundle.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 content types, 2 components, 3 entries, 1 media files")

	out, err = run(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "Fixed 0 components and 0 content types")

	// the fixture's scheduled entry fell due in 2024
	out, err = run(t, "publish-due")
	require.NoError(t, err)
	assert.Contains(t, out, "Published 1 scheduled entries")

	dest := filepath.Join(t.TempDir(), "backup.json")
	_, err = run(t, "export", "--out", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var bundle models.ExportBundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Len(t, bundle.Entries, 3)
	assert.Len(t, bundle.Components, 2)
	for _, e := range bundle.Entries {
		assert.NotEqual(t, models.EntryStatusScheduled, e.Status, "entry %s", e.ID)
	}
}

func TestImportMissingFile(t *testing.T) {
	useTempStore(t)

	_, err := run(t, "import", "--in", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
