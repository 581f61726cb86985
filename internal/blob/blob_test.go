package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_PutReturnsPublicURL(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "/static/avatars/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "user1.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/static/avatars/user1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "user1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestDiskStore_StripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "/static/avatars")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/static/avatars/passwd", url)

	_, err = os.Stat(filepath.Join(dir, "passwd"))
	assert.NoError(t, err)
}

func TestDiskStore_Overwrite(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "/static/avatars")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "a.png", strings.NewReader("one"))
	require.NoError(t, err)
	url, err := s.Put(context.Background(), "a.png", strings.NewReader("two"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, "/static/avatars/a.png", url)
}
