// Package identityindex keeps an in-memory HNSW index over enrolled
// identity embeddings so 1:N identification does not hit PostgreSQL on
// every capture. The database stays the source of truth; the index is
// rebuilt from it on startup and updated on enrollment.
package identityindex

import (
	"errors"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/facegate/facegate/internal/database"
)

const maxNeighbors = 16

// Index wraps the HNSW graph for identity embedding search.
type Index struct {
	graph      *hnsw.Graph[int64]
	idToMatric map[int64]string
	mu         sync.RWMutex
}

// New creates a new empty index.
func New() *Index {
	return &Index{
		idToMatric: make(map[int64]string),
	}
}

// Build replaces the index contents with the given identities. Identities
// without an embedding are skipped.
func (ix *Index) Build(identities []database.Identity) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(identities) == 0 {
		ix.graph = nil
		ix.idToMatric = make(map[int64]string)
		return nil
	}

	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance

	ix.idToMatric = make(map[int64]string, len(identities))

	for i := range identities {
		id := &identities[i]
		if len(id.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(id.ID, id.Embedding))
		ix.idToMatric[id.ID] = id.MatricNo
	}

	ix.graph = g
	return nil
}

// Add inserts or replaces a single identity in the index.
func (ix *Index) Add(id *database.Identity) error {
	if len(id.Embedding) == 0 {
		return errors.New("identity has no embedding")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = maxNeighbors
		g.Ml = 1.0 / float64(maxNeighbors)
		g.Distance = hnsw.EuclideanDistance
		ix.graph = g
	}

	ix.graph.Add(hnsw.MakeNode(id.ID, id.Embedding))
	ix.idToMatric[id.ID] = id.MatricNo
	return nil
}

// Nearest returns the closest enrolled identity to the query embedding,
// or false if the index is empty.
func (ix *Index) Nearest(query []float32) (*database.Candidate, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		return nil, false
	}

	neighbors := ix.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return nil, false
	}

	n := neighbors[0]
	matric, ok := ix.idToMatric[n.Key]
	if !ok {
		return nil, false
	}

	return &database.Candidate{
		MatricNo: matric,
		Distance: l2Distance(query, n.Value),
	}, true
}

// Ready reports whether the index has been built with at least one entry.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph != nil && len(ix.idToMatric) > 0
}

// Count returns the number of identities in the index.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.idToMatric)
}

// l2Distance computes the Euclidean distance between two embeddings.
func l2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
