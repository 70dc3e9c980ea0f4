package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"kbase/internal/domain"
	"kbase/internal/port"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine search.
// Search order is deterministic: descending score, with first-insertion
// order breaking ties.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	points    map[uint64]memoryPoint
	nextSeq   uint64
}

type memoryPoint struct {
	vector  []float32
	payload domain.Payload
	seq     uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[uint64]memoryPoint)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = dimension
		return nil
	}
	if s.dimension != dimension {
		return fmt.Errorf("%w: collection has dimension %d, want %d",
			domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, points []port.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if s.dimension != 0 && len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension %d, want %d", domain.ErrStore, len(p.Vector), s.dimension)
		}

		seq := s.nextSeq
		if existing, ok := s.points[p.ID]; ok {
			seq = existing.seq // overwrite keeps the original insertion order
		} else {
			s.nextSeq++
		}
		s.points[p.ID] = memoryPoint{vector: p.Vector, payload: p.Payload, seq: seq}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, topK int) ([]port.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.points) == 0 {
		return nil, nil
	}

	type scored struct {
		hit port.SearchHit
		seq uint64
	}

	scores := make([]scored, 0, len(s.points))
	for id, p := range s.points {
		scores = append(scores, scored{
			hit: port.SearchHit{ID: id, Score: cosineSimilarity(vector, p.vector), Payload: p.payload},
			seq: p.seq,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].hit.Score != scores[j].hit.Score {
			return scores[i].hit.Score > scores[j].hit.Score
		}
		return scores[i].seq < scores[j].seq
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]port.SearchHit, topK)
	for i := 0; i < topK; i++ {
		hits[i] = scores[i].hit
	}
	return hits, nil
}

func (s *MemoryStore) DeleteBySource(_ context.Context, sourcePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.points {
		if p.payload.SourcePath == sourcePath {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[uint64]memoryPoint)
	s.dimension = 0
	s.nextSeq = 0
	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
