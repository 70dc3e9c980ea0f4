// Package store implements the vector store boundary. Qdrant is reached over
// its REST API; the in-memory store backs tests and offline runs.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"kbase/internal/domain"
	"kbase/internal/port"
)

// QdrantStore is a minimal REST client for one Qdrant collection.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	distance   string
	client     *http.Client
}

// QdrantConfig configures the Qdrant client. APIKeyEnv names an environment
// variable; an unset variable means no authentication header is sent.
type QdrantConfig struct {
	URL        string
	APIKeyEnv  string
	Collection string
	Distance   string
	Timeout    time.Duration
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = "Cosine"
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	return &QdrantStore{
		url:        cfg.URL,
		apiKey:     apiKey,
		collection: cfg.Collection,
		distance:   distance,
		client:     &http.Client{Timeout: timeout},
	}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Result struct {
		PointsCount int `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type upsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantPoint struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      uint64         `json:"id"`
		Score   float64        `json:"score"`
		Payload domain.Payload `json:"payload"`
	} `json:"result"`
}

type deleteRequest struct {
	Filter fieldFilter `json:"filter"`
}

type fieldFilter struct {
	Must []fieldCondition `json:"must"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

// EnsureCollection creates the collection if it does not exist. An existing
// collection with a different vector size is a fatal configuration error.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	var info collectionInfo
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info)
	if err != nil {
		return err
	}

	if status == http.StatusOK {
		existing := info.Result.Config.Params.Vectors.Size
		if existing != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, want %d",
				domain.ErrDimensionMismatch, s.collection, existing, dimension)
		}
		return nil
	}

	if status != http.StatusNotFound {
		return fmt.Errorf("%w: get collection %q: status %d", domain.ErrStore, s.collection, status)
	}

	body := map[string]any{
		"vectors": vectorParams{Size: dimension, Distance: s.distance},
	}
	status, err = s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: create collection %q: status %d", domain.ErrStore, s.collection, status)
	}
	return nil
}

// Upsert writes points with overwrite-by-id semantics, waiting for the write
// to be applied before returning.
func (s *QdrantStore) Upsert(ctx context.Context, points []port.Point) error {
	if len(points) == 0 {
		return nil
	}

	req := upsertRequest{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		req.Points[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	status, err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", req, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: upsert %d points: status %d", domain.ErrStore, len(points), status)
	}
	return nil
}

// Search returns up to topK nearest points with their payloads. A missing
// collection (e.g. right after Clear) yields an empty result.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]port.SearchHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	req := searchRequest{Vector: vector, Limit: topK, WithPayload: true}
	var resp searchResponse
	status, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: search: status %d", domain.ErrStore, status)
	}

	hits := make([]port.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, port.SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// DeleteBySource removes every point whose payload source_path matches.
// Used before re-upserting a modified file so shrunk documents leave no
// stale chunks behind.
func (s *QdrantStore) DeleteBySource(ctx context.Context, sourcePath string) error {
	req := deleteRequest{
		Filter: fieldFilter{
			Must: []fieldCondition{
				{Key: "source_path", Match: matchValue{Value: sourcePath}},
			},
		},
	}

	status, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/delete?wait=true", req, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status >= 300 {
		return fmt.Errorf("%w: delete points for %s: status %d", domain.ErrStore, sourcePath, status)
	}
	return nil
}

// Count returns the number of stored points, 0 for a missing collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	var info collectionInfo
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	if status >= 300 {
		return 0, fmt.Errorf("%w: get collection %q: status %d", domain.ErrStore, s.collection, status)
	}
	return info.Result.PointsCount, nil
}

// Clear drops the collection. Dropping an absent collection is not an error.
func (s *QdrantStore) Clear(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound && status >= 300 {
		return fmt.Errorf("%w: drop collection %q: status %d", domain.ErrStore, s.collection, status)
	}
	return nil
}

func (s *QdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal request: %v", domain.ErrStore, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", domain.ErrStore, err)
		}
	}

	return resp.StatusCode, nil
}
