package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/photoreel/internal/models"
	"github.com/bdougie/photoreel/internal/storage"
)

func TestRunUsage(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"bogus"}))
	assert.Equal(t, 0, run([]string{"help"}))
	assert.Equal(t, 0, run([]string{"reel", "-h"}))
}

func TestRunSearchNeedsQuery(t *testing.T) {
	assert.Equal(t, 1, run([]string{"search"}))
}

func TestRunAnalyzeMissingConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"OPENAI_API_KEY", "IMAGE_BASE_URL", "IMAGE_FOLDER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	assert.Equal(t, 1, run([]string{"analyze"}))
}

func TestRunReelWithNoClips(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	sidecar := filepath.Join(dir, "captions.json")
	require.NoError(t, storage.WriteResultSet(sidecar, &models.ResultSet{
		GeneratedAt: "2024-05-01T12:00:00Z",
		BaseURL:     "http://127.0.0.1:0/",
	}))
	t.Setenv("METRICS_FILE", filepath.Join(dir, "photoreel.prom"))
	t.Setenv("LOG_LEVEL", "error")
	// Flags are applied through the environment; register the keys so they
	// are restored afterwards.
	t.Setenv("SIDECAR_PATH", "")
	t.Setenv("REEL_OUTPUT", "")

	out := filepath.Join(dir, "out.mp4")
	assert.Equal(t, 0, run([]string{"reel", "-in", sidecar, "-out", out}))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "photoreel.prom"))
	assert.NoError(t, err)
}
