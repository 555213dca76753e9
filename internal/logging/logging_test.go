package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFileAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pb.log")

	log, err := New(false, path)
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shown")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_Debug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pb.log")
	log, err := New(true, path)
	require.NoError(t, err)
	log.Debug("block tree: move ignored")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "move ignored"))
}
