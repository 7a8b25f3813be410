package parser

import (
	"fmt"
	"strings"

	"docchat/internal/models"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits text into overlapping passages.
type Chunker interface {
	Split(content string) ([]string, error)
}

// NewChunker returns the chunker for strategy "fixed" or "recursive".
// Sizes are counted in characters (runes).
func NewChunker(strategy string, chunkSize, chunkOverlap int) (Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	chunkOverlap = clampOverlap(chunkSize, chunkOverlap)

	switch strategy {
	case "", "fixed":
		return FixedChunker{Size: chunkSize, Overlap: chunkOverlap}, nil
	case "recursive":
		return RecursiveChunker{splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		)}, nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy)
	}
}

// FixedChunker cuts fixed character windows that advance by Size-Overlap.
type FixedChunker struct {
	Size    int
	Overlap int
}

func (c FixedChunker) Split(content string) ([]string, error) {
	return chunkContent(content, c.Size, c.Overlap), nil
}

// RecursiveChunker splits on paragraph, line and word boundaries before falling back to characters.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func (c RecursiveChunker) Split(content string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}

// ChunkPages splits every page of a document and numbers the chunks across the whole document.
func ChunkPages(chunker Chunker, source string, pages []models.Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range pages {
		parts, err := chunker.Split(page.Content)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			chunks = append(chunks, models.Chunk{
				Source:   source,
				Page:     page.Number,
				Position: len(chunks),
				Content:  part,
			})
		}
	}
	return chunks, nil
}

func clampOverlap(maxChars, overlapChars int) int {
	if overlapChars < 0 {
		return 0
	}
	if overlapChars >= maxChars {
		return maxChars / 2
	}
	return overlapChars
}

// chunk content into chunks with maxChars and overlapChars
//
//	windows start every maxChars-overlapChars runes and chunking stops after the window that
//	reaches the end of the content, so N runes give ceil((N-overlap)/(maxChars-overlap)) chunks.
//	A window may end early at a space, newline or period inside its overlap region.
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	overlapChars = clampOverlap(maxChars, overlapChars)

	runes := []rune(strings.TrimSpace(content))
	contentLen := len(runes)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{string(runes)}
	}

	step := maxChars - overlapChars
	lookBack := min(maxChars/10, overlapChars)

	var chunks []string
	for start := 0; ; start += step {
		end := min(start+maxChars, contentLen)

		cut := end
		if end < contentLen {
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					cut = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == contentLen {
			break
		}
	}
	return chunks
}
