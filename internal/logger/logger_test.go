package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOutput(t *testing.T) {
	w, err := openOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)

	w, err = openOutput("stderr")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	w, err = openOutput(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.(*os.File).Close() })
	assert.FileExists(t, path)
}

func TestInitWritesComponentField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init(Config{Level: "debug", Output: path}))

	log := Component("pipeline")
	log.Info().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"pipeline"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}
