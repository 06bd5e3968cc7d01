// Package ollama provides the embedding adapter backed by an Ollama server.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tutorly/mathrag/internal/infrastructure/resilience"
)

// Client holds the HTTP plumbing shared by the adapter.
type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithResilienceExecutor wraps every request with retries and a circuit breaker.
func WithResilienceExecutor(exec *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = exec
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL, embedModel string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "ollama embed"

	if len(texts) == 0 {
		return nil, nil
	}

	req := embedRequest{Model: c.embedModel, Input: texts}

	var resp embedResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, op, "/api/embed", req, &resp)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, op, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(op, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", op, len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single retrieval query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed query: empty response")
	}
	return vectors[0], nil
}
