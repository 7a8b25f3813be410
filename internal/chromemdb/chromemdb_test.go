package chromemdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"docchat/internal/config"
	"docchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, inMemory bool, key string) *VectorDBManager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewVectorDBManager(&config.VectorStoreConfig{
		Path:          filepath.Join(dir, "db"),
		Collection:    "test_docs",
		InMemory:      inMemory,
		EncryptionKey: key,
		ExportPath:    filepath.Join(dir, "export.gob"),
	})
	require.NoError(t, err)
	return m
}

func chunk(source string, position int, content string, embedding ...float32) models.Chunk {
	return models.Chunk{Source: source, Page: 1, Position: position, Content: content, Embedding: embedding}
}

func seed(t *testing.T, m *VectorDBManager) {
	t.Helper()
	require.NoError(t, m.Add(context.Background(), []models.Chunk{
		chunk("apps.pdf", 0, "Pin Outlook", 1, 0, 0),
		chunk("apps.pdf", 1, "Pin Teams", 0.9, 0.1, 0),
		chunk("travel.docx", 0, "Book flights early", 0, 0, 1),
	}))
}

func TestQuery_MostSimilarFirst(t *testing.T) {
	m := newTestManager(t, true, "")
	seed(t, m)

	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Pin Outlook", results[0].Content)
	assert.Equal(t, "apps.pdf", results[0].Source)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, "Pin Teams", results[1].Content)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestQuery_KCappedToCount(t *testing.T) {
	m := newTestManager(t, true, "")
	seed(t, m)

	results, err := m.Query(context.Background(), []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "travel.docx", results[0].Source)
}

func TestQuery_EmptyStore(t *testing.T) {
	m := newTestManager(t, true, "")

	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAdd_RequiresEmbedding(t *testing.T) {
	m := newTestManager(t, true, "")
	err := m.Add(context.Background(), []models.Chunk{chunk("a.txt", 0, "no vector")})
	assert.ErrorIs(t, err, errNoEmbedding)

	assert.NoError(t, m.Add(context.Background(), nil))
}

func TestAdd_SameIDOverwrites(t *testing.T) {
	m := newTestManager(t, true, "")
	seed(t, m)
	require.NoError(t, m.Add(context.Background(), []models.Chunk{chunk("apps.pdf", 0, "Pin Edge", 1, 0, 0)}))

	count, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDeleteSource(t *testing.T) {
	m := newTestManager(t, false, "")
	seed(t, m)

	require.NoError(t, m.DeleteSource(context.Background(), "apps.pdf"))
	count, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "apps.pdf", r.Source)
	}

	assert.NoError(t, m.DeleteSource(context.Background(), "missing.pdf"))
}

func TestReset(t *testing.T) {
	m := newTestManager(t, false, "")
	seed(t, m)

	require.NoError(t, m.Reset(context.Background()))
	count, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	seed(t, m)
	count, err = m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.VectorStoreConfig{Path: dir, Collection: "test_docs"}

	m, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	seed(t, m)

	reopened, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	count, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestExportImport(t *testing.T) {
	m := newTestManager(t, true, strings.Repeat("k", 32))
	seed(t, m)

	path, err := m.Export(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, m.Reset(context.Background()))
	require.NoError(t, m.Import(context.Background()))

	count, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := m.Query(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pin Outlook", results[0].Content)
}

func TestExport_RejectsShortKey(t *testing.T) {
	m := newTestManager(t, true, "short")
	_, err := m.Export(context.Background())
	assert.Error(t, err)
	assert.Error(t, m.Import(context.Background()))
}
