package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/kreuzberg-go/internal/extraction"
)

const scenarioInput = "AAAAA BBBBB CCCCC DDDDD EEEEE FFFFF" // 35 chars

// TestChunkOverlap covers S2: chunker "text", max_characters=20,
// overlap=5, trim=false — at least 2 chunks, and every adjacent pair
// overlaps by [1,15] characters.
func TestChunkOverlap(t *testing.T) {
	cfg := &extraction.ChunkingConfig{MaxCharacters: 20, Overlap: 5, ChunkerType: "text"}
	chunks := Chunk(scenarioInput, nil, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1].Metadata, chunks[i].Metadata
		assert.Less(t, next.ByteStart, prev.ByteEnd)
		overlap := prev.ByteEnd - next.ByteStart
		assert.GreaterOrEqual(t, overlap, 1)
		assert.LessOrEqual(t, overlap, 15)
	}
}

// TestChunkNoOverlap covers S3: same input, overlap=0 — chunks tile
// content exactly, next.byte_start == prev.byte_end for every pair.
func TestChunkNoOverlap(t *testing.T) {
	cfg := &extraction.ChunkingConfig{MaxCharacters: 20, Overlap: 0, ChunkerType: "text"}
	chunks := Chunk(scenarioInput, nil, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].Metadata.ByteEnd, chunks[i].Metadata.ByteStart)
	}

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Content)
	}
	assert.Equal(t, scenarioInput, rebuilt.String())
}

// TestChunkIndexAndTotal verifies chunk_index/total_chunks are assigned
// across the whole run, not per chunker branch.
func TestChunkIndexAndTotal(t *testing.T) {
	cfg := &extraction.ChunkingConfig{MaxCharacters: 20, Overlap: 5, ChunkerType: "text"}
	chunks := Chunk(scenarioInput, nil, cfg)
	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), c.Metadata.TotalChunks)
	}
}

// TestChunkBoundedSize is property 1: byte_end - byte_start <= M for
// every chunk, across a range of max_characters values that don't land
// on a UTF-8 boundary mid-rune.
func TestChunkBoundedSize(t *testing.T) {
	content := strings.Repeat("wordy ", 50) + "héllo wörld" // includes multibyte runes
	for _, m := range []int{5, 7, 13, 20, 64} {
		cfg := &extraction.ChunkingConfig{MaxCharacters: m, Overlap: 0, ChunkerType: "text"}
		chunks := Chunk(content, nil, cfg)
		for _, c := range chunks {
			size := c.Metadata.ByteEnd - c.Metadata.ByteStart
			assert.LessOrEqualf(t, size, m, "max_characters=%d", m)
			// content[byte_start:byte_end] must itself be valid UTF-8 (property 4):
			// slicing is guaranteed to succeed since PrevBoundary only returns
			// rune-start offsets, but a failed slice would panic here.
			_ = content[c.Metadata.ByteStart:c.Metadata.ByteEnd]
		}
	}
}

// TestChunkNilConfigDisablesChunking: Chunk returns nil with no chunking
// configuration, matching S1's chunks == None expectation.
func TestChunkNilConfigDisablesChunking(t *testing.T) {
	assert.Nil(t, Chunk("anything", nil, nil))
}

// TestChunkEmptyContent covers the boundary behavior of chunking empty
// input: a single empty chunk, not zero chunks.
func TestChunkEmptyContent(t *testing.T) {
	cfg := &extraction.ChunkingConfig{MaxCharacters: 20, Overlap: 5, ChunkerType: "text"}
	chunks := Chunk("", nil, cfg)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Content)
}

func TestChunkMarkdownFallsBackToTextForOversizedUnit(t *testing.T) {
	// A single paragraph longer than max_characters must still be split,
	// even under the markdown chunker.
	long := strings.Repeat("x", 100)
	cfg := &extraction.ChunkingConfig{MaxCharacters: 20, Overlap: 0, ChunkerType: "markdown"}
	chunks := Chunk(long, nil, cfg)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 20)
	}
}
