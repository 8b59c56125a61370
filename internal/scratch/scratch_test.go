package scratch

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"pdf-rocket/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func newDir(t *testing.T, path string) *Dir {
	t.Helper()
	return New(path, &zlog.Logger)
}

func TestEnsureIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	d := newDir(t, path)

	require.NoError(t, d.Ensure())
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep.pdf"), []byte("x"), 0o644))
	require.NoError(t, d.Ensure())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.FileExists(t, filepath.Join(path, "keep.pdf"))
}

func TestPurgeRemovesAllRegularFiles(t *testing.T) {
	path := t.TempDir()
	d := newDir(t, path)

	const n = 7
	for i := 0; i < n; i++ {
		name := filepath.Join(path, "file"+strconv.Itoa(i)+".pdf")
		require.NoError(t, os.WriteFile(name, []byte("data"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(path, "nested"), 0o755))

	assert.Equal(t, n, d.Purge())

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "nested", entries[0].Name())
}

func TestPurgeContinuesAfterDeleteFailure(t *testing.T) {
	path := t.TempDir()
	d := newDir(t, path)

	names := []string{"a.pdf", "b.docx", "c.pdf", "d.docx"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(path, name), []byte("data"), 0o644))
	}

	locked := filepath.Join(path, "b.docx")
	d.remove = func(name string) error {
		if name == locked {
			return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
		}
		return os.Remove(name)
	}

	assert.Equal(t, len(names)-1, d.Purge())

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.docx", entries[0].Name())
}

func TestPurgeMissingOrEmptyDir(t *testing.T) {
	missing := newDir(t, filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NotPanics(t, func() {
		assert.Equal(t, 0, missing.Purge())
	})

	empty := newDir(t, t.TempDir())
	assert.Equal(t, 0, empty.Purge())
}

func TestNewRequestPaths(t *testing.T) {
	d := newDir(t, "temp")
	req := d.NewRequest(domain.QualityBasic)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), req.ID)
	assert.Equal(t, filepath.Join("temp", req.ID+".pdf"), req.SourcePath)
	assert.Equal(t, filepath.Join("temp", req.ID+".docx"), req.DestinationPath)
	assert.Equal(t, domain.QualityBasic, req.Quality)
}

func TestNewRequestDestinationsAreUnique(t *testing.T) {
	d := newDir(t, "temp")
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		req := d.NewRequest(domain.QualityFormatted)
		_, dup := seen[req.DestinationPath]
		require.False(t, dup, "duplicate destination %s", req.DestinationPath)
		seen[req.DestinationPath] = struct{}{}
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, domain.DefaultScratchDir, New("", &zlog.Logger).Path())
}
