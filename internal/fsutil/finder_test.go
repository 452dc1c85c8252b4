package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.yaml", "nested/c.yml", "nested/skip.txt", "nested/deeper/d.hcl"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	t.Run("walks directories in lexical order", func(t *testing.T) {
		files, err := FindFilesByExtension([]string{root}, ".hcl", ".yaml", ".yml")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.yaml"),
			filepath.Join(root, "b.hcl"),
			filepath.Join(root, "nested/c.yml"),
			filepath.Join(root, "nested/deeper/d.hcl"),
		}, files)
	})

	t.Run("explicit files and duplicates", func(t *testing.T) {
		file := filepath.Join(root, "b.hcl")
		files, err := FindFilesByExtension([]string{file, root, file}, ".hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{file, filepath.Join(root, "nested/deeper/d.hcl")}, files)
	})

	t.Run("non-matching explicit file is skipped", func(t *testing.T) {
		files, err := FindFilesByExtension([]string{filepath.Join(root, "nested/skip.txt")}, ".hcl")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := FindFilesByExtension([]string{filepath.Join(root, "absent")}, ".hcl")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
