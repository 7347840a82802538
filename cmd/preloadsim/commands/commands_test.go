package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns its stdout. Commands share
// package-level flag state, so these tests do not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := GetRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")

	out, err := execute(t, "init", "--config", path, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "init", "--config", path, "--force=false")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigShowJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preload:\n  max_preload: 9\n"), 0600))

	out, err := execute(t, "config", "show", "--config", path, "--output", "json")
	require.NoError(t, err)

	var shown struct {
		Preload struct {
			MaxPreload int `json:"max_preload"`
		} `json:"preload"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, 9, shown.Preload.MaxPreload)

	_, err = execute(t, "config", "show", "--config", path, "--output", "toml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loader:\n  queue_size: 2\n"), 0600))

	out, err := execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "loads will be dropped")

	require.NoError(t, os.WriteFile(path, []byte("preload:\n  max_preload: 0\n"), 0600))
	_, err = execute(t, "config", "validate", "--config", path)
	assert.ErrorContains(t, err, "validation failed")
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, "config", "schema", "--output", "")
	require.NoError(t, err)
	assert.Contains(t, out, `"max_preload"`)
	assert.Contains(t, out, "preloadsim configuration")
}

func TestRunSynthetic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  backend: slog
  level: ERROR
store:
  in_memory: true
catalog:
  synthetic: 30
scroll:
  sweeps: 1
  interval: 0s
`), 0600))

	out, err := execute(t, "run", "--config", path, "--max-preload", "3")
	require.NoError(t, err)
	assert.Regexp(t, `Items\s+30`, out)
	assert.Contains(t, out, "Fingerprints")
	assert.Contains(t, out, "1 duplicates")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "preloadsim dev")
}
