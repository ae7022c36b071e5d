package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/logging"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// EmbeddingBackend is the pluggable embedding provider interface; the
// pipeline stage is agnostic to which concrete backend is configured.
type EmbeddingBackend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, int, error) // returns embeddings, total tokens
}

// VoyageBackend generates VoyageAI embeddings, generalized from the
// teacher's EmbeddingClient (single-text GenerateEmbedding +
// GenerateEmbeddingBatch with a 100-text batch limit) into the pluggable
// EmbeddingBackend contract.
type VoyageBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewVoyageBackend returns a backend calling VoyageAI's embeddings API.
func NewVoyageBackend(cfg *extraction.EmbeddingConfig) (*VoyageBackend, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, kerrors.MissingDependency("voyage-api-key")
	}
	model := cfg.Model
	if model == "" {
		model = "voyage-3"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.voyageai.com/v1/embeddings"
	}
	return &VoyageBackend{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type voyageBatchRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

const voyageBatchLimit = 100

// Embed generates embeddings for texts, chunking requests at the
// VoyageAI 100-texts-per-request limit.
func (v *VoyageBackend) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}

	out := make([][]float32, 0, len(texts))
	totalTokens := 0

	for start := 0; start < len(texts); start += voyageBatchLimit {
		end := start + voyageBatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		body, err := json.Marshal(voyageBatchRequest{Input: batch, Model: v.model})
		if err != nil {
			return nil, 0, kerrors.Serialization("failed to marshal embedding request: " + err.Error())
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, 0, kerrors.Other("failed to build embedding request: " + err.Error())
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", v.apiKey))

		resp, err := v.httpClient.Do(req)
		if err != nil {
			return nil, 0, kerrors.Other("embedding request failed: " + err.Error())
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, 0, kerrors.Other("failed to read embedding response: " + readErr.Error())
		}
		if resp.StatusCode != http.StatusOK {
			return nil, 0, kerrors.Other(fmt.Sprintf("embedding API returned status %d: %s", resp.StatusCode, string(respBody)))
		}

		var parsed voyageResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, 0, kerrors.Serialization("failed to parse embedding response: " + err.Error())
		}

		batchEmbeddings := make([][]float32, len(batch))
		for _, d := range parsed.Data {
			if d.Index >= 0 && d.Index < len(batchEmbeddings) {
				batchEmbeddings[d.Index] = d.Embedding
			}
		}
		out = append(out, batchEmbeddings...)
		totalTokens += parsed.Usage.TotalTokens
	}

	return out, totalTokens, nil
}

// RunEmbeddings populates chunk.Embedding and chunk.Metadata.TokenCount
// for every chunk via backend. On failure, per spec.md §4.6 step 2, the
// error is recorded in metadata.additional["embedding_error"] and
// chunks are kept as-is rather than aborting the pipeline.
func RunEmbeddings(ctx context.Context, chunks []result.Chunk, backend EmbeddingBackend, meta *result.Metadata, log *logging.Logger) {
	if backend == nil || len(chunks) == 0 {
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, totalTokens, err := backend.Embed(ctx, texts)
	if err != nil {
		if log != nil {
			log.Warn("embedding stage failed", "error", err)
		}
		meta.EnsureAdditional()["embedding_error"] = err.Error()
		return
	}

	perChunkTokens := 0
	if len(chunks) > 0 {
		perChunkTokens = totalTokens / len(chunks)
	}
	for i := range chunks {
		if i < len(embeddings) {
			chunks[i].Embedding = embeddings[i]
		}
		tc := perChunkTokens
		chunks[i].Metadata.TokenCount = &tc
	}
}
