// Package embedding turns text into vectors for the search index.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config is read with the EMBEDDING prefix.
type Config struct {
	Provider   string `split_words:"true" default:"openai"`
	BaseURL    string `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey     string `envconfig:"API_KEY" split_words:"true"`
	Model      string `split_words:"true" default:"text-embedding-3-small"`
	Dimensions int    `split_words:"true" default:"1536"`
}

// UseHash reports whether the deterministic fallback should be used.
func (c Config) UseHash() bool {
	return strings.EqualFold(strings.TrimSpace(c.Provider), ProviderHash) || strings.TrimSpace(c.APIKey) == ""
}

type OpenAI struct {
	client     *openaisdk.Client
	model      string
	dimensions int
}

func NewOpenAI(client *openaisdk.Client, model string, dimensions int) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("embedding client is required")
	}
	if strings.TrimSpace(model) == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAI{client: client, model: model, dimensions: dimensions}, nil
}

func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openaisdk.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("create embedding: empty response")
	}

	src := resp.Data[0].Embedding
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out, nil
}

// Hash is a deterministic embedder derived from sha256 digests. It carries
// no semantics and exists so the pipeline runs without an embedding API.
type Hash struct {
	dimensions int
}

func NewHash(dimensions int) *Hash {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &Hash{dimensions: dimensions}
}

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, 0, h.dimensions)
	digest := sha256.Sum256([]byte(text))
	for len(out) < h.dimensions {
		for i := 0; i+4 <= len(digest) && len(out) < h.dimensions; i += 4 {
			v := binary.BigEndian.Uint32(digest[i : i+4])
			out = append(out, float32(v)/float32(^uint32(0)))
		}
		digest = sha256.Sum256(digest[:])
	}
	return out, nil
}
