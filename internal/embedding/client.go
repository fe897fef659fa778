// Package embedding provides the client for the external embedding service.
// The service maps text to a fixed-width float vector; this client adds
// retry, batching, and rate limiting on top.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is what the pipeline and the vector façade depend on.
type Client interface {
	// EmbedOne returns the embedding for one text. Empty input and requests
	// that exhaust their retries both yield the zero vector; only context
	// cancellation is surfaced as an error.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts preserving input order, processing in batches
	// with bounded in-flight concurrency and an inter-batch pause.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the width of returned vectors.
	Dimension() int
}

// OllamaConfig holds configuration for the Ollama embeddings endpoint.
type OllamaConfig struct {
	BaseURL          string
	Model            string        // default: "bge-m3"
	Dimension        int           // default: 1024
	BatchSize        int           // default: 10
	ConcurrencyLimit int           // default: 5
	MaxAttempts      int           // default: 3
	InitialBackoff   time.Duration // default: 1s, doubling per attempt
	BatchPause       time.Duration // default: 500ms between batches
	RequestTimeout   time.Duration // default: 30s per request
	Logger           *log.Logger
}

// OllamaClient talks to POST {base}/api/embeddings with {"model","prompt"}.
type OllamaClient struct {
	baseURL        string
	apiURL         string
	model          string
	dimension      int
	batchSize      int
	concurrency    int
	maxAttempts    int
	initialBackoff time.Duration
	batchPause     time.Duration
	httpClient     *http.Client
	logger         *log.Logger
}

// NewOllamaClient creates a client and probes the service once. A failed
// probe is logged and the client is still returned; the pipeline degrades
// instead of refusing to start.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Model == "" {
		config.Model = "bge-m3"
	}
	if config.Dimension <= 0 {
		config.Dimension = 1024
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.ConcurrencyLimit <= 0 {
		config.ConcurrencyLimit = 5
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.BatchPause <= 0 {
		config.BatchPause = 500 * time.Millisecond
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stdout, "[EMBEDDING] ", log.LstdFlags)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")

	client := &OllamaClient{
		baseURL:        baseURL,
		apiURL:         baseURL + "/api/embeddings",
		model:          config.Model,
		dimension:      config.Dimension,
		batchSize:      config.BatchSize,
		concurrency:    config.ConcurrencyLimit,
		maxAttempts:    config.MaxAttempts,
		initialBackoff: config.InitialBackoff,
		batchPause:     config.BatchPause,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: config.Logger,
	}

	if err := client.CheckConnection(context.Background()); err != nil {
		client.logger.Printf("Embedding service probe failed (continuing degraded): %v", err)
	} else {
		client.logger.Printf("Connected to embedding service at %s (model: %s)", client.apiURL, client.model)
	}

	return client
}

// Dimension reports the configured vector width.
func (c *OllamaClient) Dimension() int {
	return c.dimension
}

// CheckConnection probes the service root.
func (c *OllamaClient) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe failed with status: %d", resp.StatusCode)
	}
	return nil
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedOne embeds a single text. Transport failures are retried with
// exponential backoff (1s, 2s, 4s by default); after the final attempt the
// zero vector is returned so a degraded service never crashes the pipeline.
func (c *OllamaClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return c.ZeroVector(), nil
	}

	var vector []float32
	operation := func() error {
		vec, err := c.requestEmbedding(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		vector = vec
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = c.initialBackoff * 8
	b.MaxElapsedTime = 0
	b.Reset()

	err := backoff.Retry(operation, backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("Embedding failed after %d attempts, returning zero vector: %v", c.maxAttempts, err)
		return c.ZeroVector(), nil
	}
	return vector, nil
}

func (c *OllamaClient) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload := embeddingRequest{Model: c.model, Prompt: text}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}
	return result.Embedding, nil
}

// EmbedBatch embeds texts in order. Within a batch up to the concurrency
// limit of requests are in flight; between batches the client pauses to
// rate-limit the service.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	sem := make(chan struct{}, c.concurrency)

	for batchStart := 0; batchStart < len(texts); batchStart += c.batchSize {
		batchEnd := batchStart + c.batchSize
		if batchEnd > len(texts) {
			batchEnd = len(texts)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error

		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()

				vec, err := c.EmbedOne(ctx, texts[idx])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				results[idx] = vec
			}(i)
		}
		wg.Wait()

		if firstErr != nil {
			return nil, firstErr
		}

		if batchEnd < len(texts) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.batchPause):
			}
		}
	}

	return results, nil
}

// Similarity embeds both texts and returns their cosine similarity.
func (c *OllamaClient) Similarity(ctx context.Context, text1, text2 string) (float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text1, text2})
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(vecs[0], vecs[1]), nil
}

// ZeroVector returns the degenerate all-zero embedding of the configured width.
func (c *OllamaClient) ZeroVector() []float32 {
	return make([]float32, c.dimension)
}

// IsZeroVector reports whether every component of vec is zero.
func IsZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// AllZero reports whether every vector in the batch is zero. The pipeline
// uses this to detect a degraded embedding service.
func AllZero(vecs [][]float32) bool {
	if len(vecs) == 0 {
		return false
	}
	for _, vec := range vecs {
		if !IsZeroVector(vec) {
			return false
		}
	}
	return true
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-norm inputs score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
