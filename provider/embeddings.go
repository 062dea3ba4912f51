package provider

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingDim is the dimensionality of every embedding this package
// returns. The knowledge base vector column uses the same width.
const EmbeddingDim = 1024

// embeddingModel picks the embedding model for the backend. Both choices
// produce EmbeddingDim-wide vectors.
func (p *Provider) embeddingModel() string {
	if p.name == "ollama" {
		return "bge-m3"
	}
	return "BAAI/bge-large-en-v1.5"
}

// Embed returns the embedding vector for the input text.
func (p *Provider) Embed(ctx context.Context, input string) ([]float32, error) {
	embedding, _, err := p.EmbedWithUsage(ctx, input)
	return embedding, err
}

// EmbedWithUsage is Embed plus token accounting for the call.
func (p *Provider) EmbedWithUsage(ctx context.Context, input string) ([]float32, Usage, error) {
	if p.name == "test" {
		return testEmbedding(input), Usage{}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, Usage{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{input},
		Model: openai.EmbeddingModel(p.embeddingModel()),
	})
	if err != nil {
		return nil, Usage{}, fmt.Errorf("provider %s failed: %w", p.name, err)
	}
	if len(resp.Data) == 0 {
		return nil, Usage{}, fmt.Errorf("provider %s failed: empty embedding response", p.name)
	}

	usage := Usage{
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	return resp.Data[0].Embedding, usage, nil
}

// testEmbedding derives a stable unit vector from the input so the offline
// backend gives identical inputs identical embeddings.
func testEmbedding(input string) []float32 {
	out := make([]float32, EmbeddingDim)
	h := fnv.New64a()
	_, _ = h.Write([]byte(input))
	seed := h.Sum64()

	var norm float64
	buf := make([]byte, 8)
	for i := range out {
		binary.LittleEndian.PutUint64(buf, seed)
		h.Reset()
		_, _ = h.Write(buf)
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		seed = h.Sum64()
		v := float64(int64(seed%2000)-1000) / 1000
		out[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
