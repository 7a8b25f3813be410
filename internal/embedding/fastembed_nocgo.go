//go:build !cgo

package embedding

import "context"

// FastEmbedProvider is unavailable without cgo.
type FastEmbedProvider struct{}

func NewFastEmbedProvider(_, _ string) (*FastEmbedProvider, error) {
	return nil, ErrFastEmbedUnavailable
}

func (p *FastEmbedProvider) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrFastEmbedUnavailable
}

func (p *FastEmbedProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, ErrFastEmbedUnavailable
}

func (p *FastEmbedProvider) Close() error { return nil }
