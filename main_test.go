package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genai-gallery/internal/indexer"
	"genai-gallery/internal/startup"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "sync", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.RunE, "bare invocation should serve")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "genai-gallery "+startup.Version))

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info startup.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, startup.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestVersionRejectsArgs(t *testing.T) {
	_, err := execute(t, "version", "extra")
	assert.Error(t, err)
}

func TestSyncCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmp := t.TempDir()
	images := filepath.Join(tmp, "images")
	require.NoError(t, os.MkdirAll(filepath.Join(images, "outputs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "outputs", "a.jpg"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "b.webp"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "notes.txt"), []byte("ignored"), 0o644))

	t.Setenv(startup.ConfigFileEnv, "")
	t.Setenv("IMAGES_DIR", images)
	t.Setenv("DB_PATH", filepath.Join(tmp, "catalog", "gallery.db"))
	t.Setenv("CACHE_DIR", filepath.Join(tmp, "cache"))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "catalog"), 0o755))

	out, err := execute(t, "sync")
	require.NoError(t, err, out)
	var first indexer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &first), out)
	assert.Equal(t, 2, first.Scanned)
	assert.Equal(t, 2, first.Inserted)
	assert.NotEmpty(t, first.RunID)

	out, err = execute(t, "sync")
	require.NoError(t, err, out)
	var second indexer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &second), out)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Unchanged)
}

func TestWriteResultTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultTable(&buf, indexer.Result{RunID: "run-1", Scanned: 4, Inserted: 3, Duplicates: 1}))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Regexp(t, `inserted\s+3`, out)
	assert.Regexp(t, `duplicates\s+1`, out)
	assert.Regexp(t, `evicted\s+0`, out)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
