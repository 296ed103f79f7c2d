package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.csv")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFTitle,lat\nTip,1\n"), 0o600))

	doc, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "locations.csv", doc.Name)
	assert.Equal(t, "Title,lat\nTip,1\n", doc.Content)
}

func TestReader_Extract_NoBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.csv")
	require.NoError(t, os.WriteFile(path, []byte("Title\n"), 0o600))

	doc, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Title\n", doc.Content)
}

func TestReader_Extract_NotFound(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv")).Extract(context.Background())
	require.ErrorIs(t, err, ErrInputNotFound)
	assert.Contains(t, err.Error(), "CSV file not found")
	assert.Contains(t, err.Error(), "missing.csv")
}
