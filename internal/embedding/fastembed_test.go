//go:build cgo

package embedding

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The model download and onnxruntime are only available on machines set up for it.
func TestFastEmbedProvider(t *testing.T) {
	if os.Getenv("DOCCHAT_TEST_FASTEMBED") == "" {
		t.Skip("set DOCCHAT_TEST_FASTEMBED=1 to run the local embedding model")
	}

	p, err := NewFastEmbedProvider("sentence-transformers/all-MiniLM-L6-v2", t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	vectors, err := p.EmbedDocuments(context.Background(), []string{"Pin Outlook to the taskbar", "Open Teams"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 384)

	q, err := p.EmbedQuery(context.Background(), "Which apps should I pin?")
	require.NoError(t, err)
	assert.Len(t, q, 384)
}

func TestFastEmbedProvider_UnknownModel(t *testing.T) {
	_, err := NewFastEmbedProvider("not-a-model", t.TempDir())
	assert.Error(t, err)
}
