package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFiles writes each file of files, keyed by slash-separated path, under
// dir. Parent directories are created as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// ImageRoot creates an empty image root whose /etc/passwd and /etc/group
// map root to the uid and gid running the test, so that ownership changes
// succeed without privileges.
func ImageRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	uid, gid := os.Getuid(), os.Getgid()
	WriteFiles(t, root, map[string]string{
		"etc/passwd": fmt.Sprintf("root:x:%d:%d:root:/root:/bin/bash\n", uid, gid),
		"etc/group":  fmt.Sprintf("root:x:%d:\n", gid),
	})
	return root
}
