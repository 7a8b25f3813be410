package documents

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supportedTxtPDF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".pdf"
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "uploads"), supportedTxtPDF)
	require.NoError(t, err)
	return lib
}

func TestSaveAndList(t *testing.T) {
	lib := newTestLibrary(t)

	path, err := lib.Save("b.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib.Dir(), "b.txt"), path)

	_, err = lib.Save("a.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	_, err = lib.Save("image.png", strings.NewReader("png"))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(lib.Dir(), "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), "nested", "c.txt"), []byte("x"), 0o644))

	docs, err := lib.List()
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a.pdf", docs[0].RelPath)
	assert.Equal(t, "b.txt", docs[1].RelPath)
	assert.Equal(t, int64(5), docs[1].Size)
	assert.Equal(t, "nested/c.txt", docs[2].RelPath)
	assert.Equal(t, "c.txt", docs[2].Name)

	files, err := lib.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestSave_ReplacesExisting(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save("notes.txt", strings.NewReader("first"))
	require.NoError(t, err)
	path, err := lib.Save("notes.txt", strings.NewReader("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	docs, err := lib.List()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSave_RejectsPaths(t *testing.T) {
	lib := newTestLibrary(t)
	for _, name := range []string{"", ".", "..", "../escape.txt", "dir/file.txt", `dir\file.txt`} {
		_, err := lib.Save(name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestDelete(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save("notes.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, lib.Delete("notes.txt"))
	assert.ErrorIs(t, lib.Delete("notes.txt"), ErrDocumentNotFound)
	assert.ErrorIs(t, lib.Delete("../notes.txt"), ErrInvalidName)
}

func TestClear(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save("a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(lib.Dir(), "nested"), 0o755))

	require.NoError(t, lib.Clear())
	entries, err := os.ReadDir(lib.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, lib.Dir())
}

func TestPath_RelativeNames(t *testing.T) {
	lib := newTestLibrary(t)

	path, err := lib.Path("hr/guide.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib.Dir(), "hr", "guide.txt"), path)

	path, err = lib.Path("/hr/guide.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib.Dir(), "hr", "guide.txt"), path)

	for _, name := range []string{"", "/", "../x.txt", "hr/../../x.txt", "hr//x.txt", ".hidden/x.txt", `hr\x.txt`} {
		_, err := lib.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestRel(t *testing.T) {
	lib := newTestLibrary(t)

	rel, ok := lib.Rel(filepath.Join(lib.Dir(), "hr", "guide.txt"))
	assert.True(t, ok)
	assert.Equal(t, "hr/guide.txt", rel)

	_, ok = lib.Rel(filepath.Join(t.TempDir(), "guide.txt"))
	assert.False(t, ok)
	_, ok = lib.Rel(lib.Dir())
	assert.False(t, ok)
}

func TestLookupAndDelete_Nested(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, os.MkdirAll(filepath.Join(lib.Dir(), "hr"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), "hr", "guide.txt"), []byte("x"), 0o644))

	path, err := lib.Lookup("hr/guide.txt")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = lib.Lookup("guide.txt")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = lib.Lookup("hr")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, lib.Delete("hr/guide.txt"))
	assert.NoFileExists(t, path)
}

func TestList_SkipsHiddenDirectories(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, os.MkdirAll(filepath.Join(lib.Dir(), ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), ".cache", "a.txt"), []byte("x"), 0o644))

	docs, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNewLibrary_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "uploads")
	lib, err := NewLibrary(dir, supportedTxtPDF)
	require.NoError(t, err)
	assert.DirExists(t, lib.Dir())

	_, err = NewLibrary(dir, supportedTxtPDF)
	assert.NoError(t, err)
}
