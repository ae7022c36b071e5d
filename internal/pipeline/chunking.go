// Package pipeline runs the post-extraction stages spec.md §4.6
// requires, in order: chunking, embeddings, language detection,
// validators, post-processors. Invoked exactly once per extraction,
// after the extractor returns.
package pipeline

import (
	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Chunk splits content per cfg, assigning chunk_index/total_chunks and
// mapping byte ranges to first_page/last_page via boundaries when page
// data is present. Returns nil (no chunking) when cfg is nil.
func Chunk(content string, boundaries []result.PageBoundary, cfg *extraction.ChunkingConfig) []result.Chunk {
	if cfg == nil || cfg.MaxCharacters <= 0 {
		return nil
	}

	var chunks []result.Chunk
	switch cfg.ChunkerType {
	case "markdown":
		chunks = chunkMarkdown(content, cfg)
	default:
		chunks = chunkText(content, cfg)
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata.ChunkIndex = i
		chunks[i].Metadata.TotalChunks = total
		if boundaries != nil {
			first, last := pagesForRange(boundaries, chunks[i].Metadata.ByteStart, chunks[i].Metadata.ByteEnd)
			chunks[i].Metadata.FirstPage = first
			chunks[i].Metadata.LastPage = last
		}
	}
	return chunks
}

// chunkText implements the character-bounded, UTF-8-safe, sliding
// window chunker: byte_end - byte_start ≤ M, consecutive chunks overlap
// by at most O (and never negative), non-overlapping portions
// concatenate back to content (spec.md §8 property 1).
func chunkText(content string, cfg *extraction.ChunkingConfig) []result.Chunk {
	n := len(content)
	if n == 0 {
		return []result.Chunk{{
			Content:  "",
			Metadata: result.ChunkMetadata{ByteStart: 0, ByteEnd: 0},
		}}
	}

	var chunks []result.Chunk
	start := 0
	for start < n {
		end := start + cfg.MaxCharacters
		if end > n {
			end = n
		}
		end = result.PrevBoundary(content, end)
		if end <= start {
			end = n
		}

		chunkContent := content[start:end]
		if cfg.Trim {
			chunkContent = trimSpace(chunkContent)
		}
		chunks = append(chunks, result.Chunk{
			Content:  chunkContent,
			Metadata: result.ChunkMetadata{ByteStart: start, ByteEnd: end},
		})

		if end >= n {
			break
		}
		next := end - cfg.Overlap
		next = result.PrevBoundary(content, next)
		if next <= start {
			next = start + 1 // always make forward progress
		}
		start = next
	}
	return chunks
}

// chunkMarkdown chunks along blank-line (paragraph/heading) boundaries
// first, falling back to chunkText's sliding window when a single
// structural unit still exceeds max_characters.
func chunkMarkdown(content string, cfg *extraction.ChunkingConfig) []result.Chunk {
	units := splitMarkdownUnits(content)

	var chunks []result.Chunk
	pos := 0
	var buf string
	bufStart := 0

	flush := func(end int) {
		if buf == "" {
			return
		}
		c := buf
		if cfg.Trim {
			c = trimSpace(c)
		}
		chunks = append(chunks, result.Chunk{
			Content:  c,
			Metadata: result.ChunkMetadata{ByteStart: bufStart, ByteEnd: end},
		})
		buf = ""
	}

	for _, u := range units {
		if len(buf)+len(u) > cfg.MaxCharacters && buf != "" {
			flush(pos)
			bufStart = pos
		}
		if len(u) > cfg.MaxCharacters {
			flush(pos)
			sub := chunkText(u, cfg)
			for _, c := range sub {
				c.Metadata.ByteStart += pos
				c.Metadata.ByteEnd += pos
				chunks = append(chunks, c)
			}
			pos += len(u)
			bufStart = pos
			continue
		}
		if buf == "" {
			bufStart = pos
		}
		buf += u
		pos += len(u)
	}
	flush(pos)
	return chunks
}

// splitMarkdownUnits splits on blank-line boundaries, keeping the
// separator attached to the preceding unit so byte offsets stay exact.
func splitMarkdownUnits(content string) []string {
	var units []string
	start := 0
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\n' && content[i+1] == '\n' {
			j := i + 2
			for j < len(content) && content[j] == '\n' {
				j++
			}
			units = append(units, content[start:j])
			start = j
			i = j - 1
		}
	}
	if start < len(content) {
		units = append(units, content[start:])
	}
	if len(units) == 0 {
		return []string{content}
	}
	return units
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// pagesForRange maps a [start,end) byte range onto the first and last
// page it touches, per spec.md §8 property 3.
func pagesForRange(boundaries []result.PageBoundary, start, end int) (*int, *int) {
	var first, last *int
	for _, b := range boundaries {
		if b.ByteEnd <= start || b.ByteStart >= end {
			continue
		}
		p := b.PageNumber
		if first == nil {
			first = &p
		}
		last = &p
	}
	return first, last
}
