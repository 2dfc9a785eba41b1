package core

import "context"

// EdgeDirection selects which arcs Neighbors follows from a node.
type EdgeDirection int

const (
	// Outgoing follows edges where the node is the source.
	Outgoing EdgeDirection = iota
	// Incoming follows edges where the node is the target.
	Incoming
)

func (d EdgeDirection) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Direction is the caller-facing traversal direction of a lineage query.
type Direction int

const (
	// Upstream traces where a column's data comes from.
	Upstream Direction = iota
	// Downstream traces where a column's data flows to.
	Downstream
	// BothDirections runs upstream and downstream and unions the results.
	BothDirections
)

func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return "both"
	}
}

// Neighbor is one adjacent (edge, node) pair returned by a store. For
// Outgoing the edge's source is the queried node; for Incoming its target.
type Neighbor struct {
	Edge LineageEdge
	Key  NodeKey
}

// NodeFilter selects nodes by attribute. Column is optional; empty fields
// other than Column make the filter invalid.
type NodeFilter struct {
	App      string
	Database string
	Table    string
	Column   string
}

// ProvenanceFilter selects raw edges by the ETL system/job that produced
// them. AppName is optional.
type ProvenanceFilter struct {
	ETLSystem string
	ETLJobs   []string
	AppName   string
}

// Matches reports whether an edge's provenance satisfies the filter.
func (f ProvenanceFilter) Matches(p Provenance) bool {
	if f.ETLSystem != "" && p.ETLSystem != f.ETLSystem {
		return false
	}
	if len(f.ETLJobs) > 0 {
		found := false
		for _, job := range f.ETLJobs {
			if p.ETLJob == job {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.AppName != "" && p.AppName != f.AppName {
		return false
	}
	return true
}

// GraphStore is the read contract the engine requires from whatever
// storage backs the lineage graph. Any store offering these operations
// (in-memory map, relational join, graph database) can satisfy it.
//
// Neighbors must return a deterministic, finite sequence for a finite
// graph. When the backing store enforces a result cap, the second return
// value signals truncation instead of silently understating results.
type GraphStore interface {
	Neighbors(ctx context.Context, key NodeKey, dir EdgeDirection) ([]Neighbor, bool, error)

	// KindOf returns the node's kind, or an error wrapping ErrNotFound
	// when the key is absent.
	KindOf(ctx context.Context, key NodeKey) (NodeKind, error)

	// LookupByAttributes resolves a user-supplied table/column filter
	// into node keys.
	LookupByAttributes(ctx context.Context, filter NodeFilter) ([]NodeKey, error)

	// NodesByProvenance returns every node that participates, as source
	// or target, in at least one raw edge matching the filter.
	NodesByProvenance(ctx context.Context, filter ProvenanceFilter) ([]NodeKey, error)
}

// GraphWriter is the ingestion-side contract. Adding a node with a key
// that already exists is a no-op; the first recorded kind wins.
type GraphWriter interface {
	AddNode(ctx context.Context, node ColumnNode) error
	AddEdge(ctx context.Context, edge LineageEdge) error
}
