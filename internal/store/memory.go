// Package store provides graph store adapters backing the lineage engine:
// an in-memory store for tests and small fact sets, and a SQLite-backed
// store for persistent graphs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// MemoryStore is an in-memory graph store. It implements both
// core.GraphStore and core.GraphWriter and is safe for concurrent use:
// queries only read, and the ingest side takes the write lock.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[core.NodeKey]core.ColumnNode
	keys  []core.NodeKey // insertion order, for deterministic scans
	out   map[core.NodeKey][]core.LineageEdge
	in    map[core.NodeKey][]core.LineageEdge
	edges []core.LineageEdge

	// maxNeighbors caps each Neighbors result; 0 means unlimited. When
	// the cap trims a result the truncation flag is raised.
	maxNeighbors int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[core.NodeKey]core.ColumnNode),
		out:   make(map[core.NodeKey][]core.LineageEdge),
		in:    make(map[core.NodeKey][]core.LineageEdge),
	}
}

// SetMaxNeighbors configures the per-node neighbor cap. Zero disables it.
func (s *MemoryStore) SetMaxNeighbors(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxNeighbors = n
}

// AddNode records a node. The first recorded kind for a key wins;
// re-adding an existing key is a no-op.
func (s *MemoryStore) AddNode(_ context.Context, node core.ColumnNode) error {
	if err := node.Key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[node.Key]; ok {
		return nil
	}
	if node.Kind == "" {
		node.Kind = core.KindReal
	}
	s.nodes[node.Key] = node
	s.keys = append(s.keys, node.Key)
	return nil
}

// AddEdge records a raw lineage edge. Missing endpoint nodes are created
// alongside it with the default REAL kind. Duplicate edges are retained
// distinctly.
func (s *MemoryStore) AddEdge(ctx context.Context, edge core.LineageEdge) error {
	for _, k := range []core.NodeKey{edge.Source, edge.Target} {
		if err := s.AddNode(ctx, core.ColumnNode{Key: k, Kind: core.KindReal}); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out[edge.Source] = append(s.out[edge.Source], edge)
	s.in[edge.Target] = append(s.in[edge.Target], edge)
	s.edges = append(s.edges, edge)
	return nil
}

// Neighbors returns the adjacent (edge, node) pairs in edge insertion
// order, which is stable for an unchanged graph.
func (s *MemoryStore) Neighbors(_ context.Context, key core.NodeKey, dir core.EdgeDirection) ([]core.Neighbor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []core.LineageEdge
	if dir == core.Outgoing {
		edges = s.out[key]
	} else {
		edges = s.in[key]
	}

	truncated := false
	if s.maxNeighbors > 0 && len(edges) > s.maxNeighbors {
		edges = edges[:s.maxNeighbors]
		truncated = true
	}

	neighbors := make([]core.Neighbor, 0, len(edges))
	for _, e := range edges {
		n := core.Neighbor{Edge: e, Key: e.Target}
		if dir == core.Incoming {
			n.Key = e.Source
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, truncated, nil
}

// KindOf returns the node's kind or core.ErrNotFound.
func (s *MemoryStore) KindOf(_ context.Context, key core.NodeKey) (core.NodeKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	return node.Kind, nil
}

// LookupByAttributes resolves an attribute filter to node keys, sorted for
// reproducible output.
func (s *MemoryStore) LookupByAttributes(_ context.Context, filter core.NodeFilter) ([]core.NodeKey, error) {
	if filter.Database == "" || filter.Table == "" {
		return nil, core.Invalidf("node filter requires database and table")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []core.NodeKey
	for _, k := range s.keys {
		if filter.App != "" && k.App != filter.App {
			continue
		}
		if k.Database != filter.Database || k.Table != filter.Table {
			continue
		}
		if filter.Column != "" && k.Column != filter.Column {
			continue
		}
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, nil
}

// NodesByProvenance returns every node touching at least one edge matching
// the filter, sorted and deduplicated.
func (s *MemoryStore) NodesByProvenance(_ context.Context, filter core.ProvenanceFilter) ([]core.NodeKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[core.NodeKey]struct{})
	var keys []core.NodeKey
	for _, e := range s.edges {
		if !filter.Matches(e.Provenance) {
			continue
		}
		for _, k := range []core.NodeKey{e.Source, e.Target} {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sortKeys(keys)
	return keys, nil
}

// NodeCount returns the number of distinct nodes.
func (s *MemoryStore) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of raw edges.
func (s *MemoryStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Edges returns a copy of all raw edges in insertion order.
func (s *MemoryStore) Edges() []core.LineageEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := make([]core.LineageEdge, len(s.edges))
	copy(edges, s.edges)
	return edges
}

func sortKeys(keys []core.NodeKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.App != b.App {
			return a.App < b.App
		}
		if a.Database != b.Database {
			return a.Database < b.Database
		}
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Column < b.Column
	})
}
