package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// Client talks to qdrant over its HTTP API and stores one point per
// chunk, keyed by the chunk id.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Add upserts chunk vectors. Point ids are the chunk ids, so Remove
// and filtered search work directly off ChunkStore ids.
func (c *Client) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors mismatch: %d/%d", len(ids), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID     string    `json:"id"`
		Vector []float32 `json:"vector"`
	}
	points := make([]point, 0, len(ids))
	for i := range ids {
		points = append(points, point{ID: ids[i], Vector: vectors[i]})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, body, "qdrant upsert", nil)
}

// Search returns the k nearest chunk ids, descending by similarity.
func (c *Client) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error) {
	return c.search(ctx, vector, k, nil)
}

// SearchFiltered restricts the nearest-neighbor search to the given
// chunk ids via a has_id condition evaluated inside qdrant.
func (c *Client) SearchFiltered(ctx context.Context, vector []float32, k int, allowedIDs []string) ([]domain.ScoredID, error) {
	if len(allowedIDs) == 0 {
		return nil, nil
	}
	filter := map[string]any{
		"must": []map[string]any{
			{"has_id": allowedIDs},
		},
	}
	return c.search(ctx, vector, k, filter)
}

func (c *Client) search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]domain.ScoredID, error) {
	if k <= 0 {
		k = 10
	}
	reqBody := map[string]any{
		"vector": vector,
		"limit":  k,
	}
	if filter != nil {
		reqBody["filter"] = filter
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var searchResp struct {
		Result []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, body, "qdrant search", &searchResp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredID, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredID{ChunkID: r.ID, Score: r.Score})
	}
	return out, nil
}

// Remove deletes the given points. Unknown ids are fine; qdrant treats
// the delete as idempotent.
func (c *Client) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string]any{"points": ids})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPost, url, body, "qdrant delete", nil)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("%s status: %s: %s", op, resp.Status, msg)
		}
		return fmt.Errorf("%s status: %s", op, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}
