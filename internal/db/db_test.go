package db

import (
	"context"
	"os"
	"testing"

	"docchat/internal/config"
	"docchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc := newDocument(models.Chunk{
		Source:    "apps.pdf",
		Page:      2,
		Position:  7,
		Content:   "Pin Teams",
		Embedding: []float32{0.1, 0.2},
	})
	assert.Equal(t, "apps.pdf#7", doc.ID)
	assert.Equal(t, []float32{0.1, 0.2}, doc.Embedding.Slice())

	doc.Similarity = 0.8
	got := doc.retrieved()
	assert.Equal(t, models.RetrievedChunk{Content: "Pin Teams", Source: "apps.pdf", Page: 2, Score: 0.8}, got)
}

func TestConnectDB_UnknownDriver(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{URL: "postgres://localhost/db", Driver: "mysql"})
	assert.Error(t, err)
}

func newTestStore(t *testing.T, driver string) *PgVectorStore {
	t.Helper()
	url := os.Getenv("DOCCHAT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set DOCCHAT_TEST_DATABASE_URL to run PostgreSQL tests")
	}
	s, err := NewPgVectorStore(context.Background(), &config.DatabaseConfig{URL: url, Driver: driver})
	require.NoError(t, err)
	require.NoError(t, s.Reset(context.Background()))
	t.Cleanup(func() {
		_ = s.Reset(context.Background())
		_ = s.Close()
	})
	return s
}

func TestPgVectorStore(t *testing.T) {
	for _, driver := range []string{"pgdriver", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t, driver)

			results, err := s.Query(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, results)

			require.NoError(t, s.Add(ctx, []models.Chunk{
				{Source: "apps.pdf", Page: 1, Position: 0, Content: "Pin Outlook", Embedding: []float32{1, 0, 0}},
				{Source: "apps.pdf", Page: 1, Position: 1, Content: "Pin Teams", Embedding: []float32{0.9, 0.1, 0}},
				{Source: "travel.docx", Page: 1, Position: 0, Content: "Book flights", Embedding: []float32{0, 0, 1}},
			}))

			count, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			results, err = s.Query(ctx, []float32{1, 0, 0}, 10)
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, "Pin Outlook", results[0].Content)
			assert.InDelta(t, 1.0, results[0].Score, 1e-5)
			assert.Equal(t, "travel.docx", results[2].Source)

			require.NoError(t, s.DeleteSource(ctx, "apps.pdf"))
			count, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			require.NoError(t, s.Reset(ctx))
			count, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}
