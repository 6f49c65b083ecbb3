package datasite

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipUnzipFolder(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "util.py"), []byte("x = 1\n"), 0o644))

	data, err := ZipPath(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "unpacked")
	require.NoError(t, Unzip(data, dst))

	main, err := os.ReadFile(filepath.Join(dst, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(main))

	util, err := os.ReadFile(filepath.Join(dst, "lib", "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(util))
}

func TestZipSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "script.py")
	require.NoError(t, os.WriteFile(file, []byte("pass\n"), 0o644))

	data, err := ZipPath(file)
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, Unzip(data, dst))

	content, err := os.ReadFile(filepath.Join(dst, "script.py"))
	require.NoError(t, err)
	assert.Equal(t, "pass\n", string(content))
}

func TestUnzipRejectsEscape(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("../escape.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = Unzip(buf.Bytes(), t.TempDir())
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.yaml")

	require.NoError(t, WriteFileAtomic(path, []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("v2"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	// No temp droppings left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.csv"), []byte("id\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.csv"), []byte("id\n2\n"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "sub", "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n2\n", string(got))
}
