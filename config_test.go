package mapreduce

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigRequiredFields(t *testing.T) {
	path := writeConfig(t, `{
		"input_file": "corpus.txt",
		"number_of_mapper": 4,
		"number_of_reducer": 2
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "corpus.txt", cfg.InputFile)
	assert.Equal(t, 4, cfg.NumMapper)
	assert.Equal(t, 2, cfg.NumReducer)
	assert.Equal(t, "wordcount", cfg.MapFunc)
	assert.Equal(t, 3*time.Second, cfg.LivenessTimeout())
}

func TestLoadConfigMissingInputFile(t *testing.T) {
	path := writeConfig(t, `{"number_of_mapper": 1, "number_of_reducer": 1}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrNoInputFile)
}

func TestLoadConfigBadWorkerCount(t *testing.T) {
	path := writeConfig(t, `{"input_file": "x", "number_of_mapper": 0, "number_of_reducer": 1}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrBadWorkerCount)
}

func TestLoadConfigCustomLivenessTimeout(t *testing.T) {
	path := writeConfig(t, `{
		"input_file": "x", "number_of_mapper": 1, "number_of_reducer": 1,
		"liveness_timeout_ms": 500
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.LivenessTimeout())
}
