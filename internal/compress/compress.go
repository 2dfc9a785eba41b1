package compress

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Default traversal bounds.
const (
	DefaultMaxDepth   = 5
	DefaultMaxVisited = 100_000
)

// Options configures a Compressor.
type Options struct {
	// MaxDepth is the maximum number of raw edges a path may contain.
	// Paths exceeding it are abandoned, not reported as partial results.
	// Zero or negative selects DefaultMaxDepth.
	MaxDepth int

	// MaxVisited caps the number of (node, depth) states explored per
	// expansion, bounding memory on dense graphs. Zero or negative
	// selects DefaultMaxVisited. Exceeding the cap terminates the search
	// early with the truncation flag raised.
	MaxVisited int

	// EdgeFilter, when set, keeps a compressed edge only if at least one
	// raw edge on its underlying path satisfies the filter. Used by the
	// job/system query shape.
	EdgeFilter func(core.LineageEdge) bool
}

// Result is the outcome of one expansion: the compressed edges discovered
// plus whether any bound cut the search short. A raised Truncated flag
// means the result may be incomplete; it is never silently dropped.
type Result struct {
	Edges     []core.CompressedEdge
	Truncated bool
}

// Compressor runs bounded expansions over a graph store. It holds no
// per-query state, so one Compressor may serve concurrent queries.
type Compressor struct {
	store  core.GraphStore
	logger *slog.Logger
	opts   Options
}

// New creates a Compressor. A nil logger discards warnings.
func New(store core.GraphStore, logger *slog.Logger, opts Options) *Compressor {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxVisited <= 0 {
		opts.MaxVisited = DefaultMaxVisited
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compressor{store: store, logger: logger, opts: opts}
}

// Expand discovers compressed edges reachable from the given roots.
// Upstream follows incoming edges, Downstream outgoing, BothDirections
// runs both and unions the results. Duplicate (source, target, provenance)
// discoveries collapse to a single edge.
//
// Context cancellation (e.g. a caller timeout) stops the traversal and
// returns whatever has been accumulated with Truncated set.
func (c *Compressor) Expand(ctx context.Context, roots []core.NodeKey, dir core.Direction) (*Result, error) {
	sink := newDedupe()
	res := &Result{}

	dirs := []core.EdgeDirection{}
	switch dir {
	case core.Upstream:
		dirs = append(dirs, core.Incoming)
	case core.Downstream:
		dirs = append(dirs, core.Outgoing)
	case core.BothDirections:
		dirs = append(dirs, core.Incoming, core.Outgoing)
	}

	for _, d := range dirs {
		for _, root := range roots {
			truncated, err := c.expandFrom(ctx, root, d, sink)
			if err != nil {
				return nil, err
			}
			if truncated {
				res.Truncated = true
			}
		}
	}

	res.Edges = sink.edges
	return res, nil
}

// state identifies one explored point of an expansion. Bounding on
// (node, depth) rather than node alone lets a node be revisited via a
// different, shorter path while still guaranteeing termination on cycles.
// The matched bit keeps filter-satisfying branches distinct from
// unmatched ones through shared intermediate nodes. The branch's
// attributed provenance is part of the state too: parallel raw edges with
// distinct provenance converge on the same non-real node at the same
// depth, and each must carry its own attribution through to the REAL
// endpoint rather than being pruned against the other.
type state struct {
	key     core.NodeKey
	depth   int
	matched bool
	prov    core.Provenance
}

// frame is one pending branch of the depth-first expansion.
type frame struct {
	key     core.NodeKey
	depth   int
	entry   core.LineageEdge // edge leaving the path's source endpoint
	matched bool
}

// expandFrom runs one bounded expansion rooted at root. The expansion
// stops extending a branch the moment it reaches a REAL node: each
// real-to-real hop is discovered independently, and transitive closure is
// the caller's concern.
func (c *Compressor) expandFrom(ctx context.Context, root core.NodeKey, dir core.EdgeDirection, sink *dedupe) (bool, error) {
	initialMatched := c.opts.EdgeFilter == nil

	visited := map[state]struct{}{
		{key: root, depth: 0, matched: initialMatched}: {},
	}
	stack := []frame{{key: root, matched: initialMatched}}
	truncated := false

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return true, nil
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		neighbors, trunc, err := c.store.Neighbors(ctx, f.key, dir)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation surfacing through the store is the caller's
				// deadline, not a store failure; report what we have as
				// partial.
				return true, nil
			}
			return truncated, err
		}
		if trunc {
			truncated = true
		}

		// Reverse push order so branches are explored in adapter order.
		for i := len(neighbors) - 1; i >= 0; i-- {
			n := neighbors[i]
			depth := f.depth + 1

			entry := f.entry
			if dir == core.Outgoing {
				if f.depth == 0 {
					entry = n.Edge
				}
			} else {
				// Walking incoming arcs, the most recently crossed edge
				// is the one leaving the path's source endpoint.
				entry = n.Edge
			}

			matched := f.matched
			if !matched && c.opts.EdgeFilter(n.Edge) {
				matched = true
			}

			kind, err := c.store.KindOf(ctx, n.Key)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					// A dangling edge is a data defect, not a query
					// failure. Skip it and keep going.
					c.logger.Warn("skipping edge with missing endpoint",
						"from", f.key.String(), "to", n.Key.String(), "direction", dir.String())
					continue
				}
				if ctx.Err() != nil {
					return true, nil
				}
				return truncated, err
			}

			if kind.Real() && n.Key != root {
				if matched {
					src, tgt := root, n.Key
					if dir == core.Incoming {
						src, tgt = n.Key, root
					}
					sink.add(core.CompressedEdge{
						Source:     src,
						Target:     tgt,
						Provenance: entry.Provenance,
						Hops:       depth,
					})
				}
				// Never extend past a REAL node.
				continue
			}
			if kind.Real() {
				// Back at the root itself: any continuation would put a
				// REAL node in the path interior.
				continue
			}

			if depth >= c.opts.MaxDepth {
				// The branch ends on a non-real node with no edge budget
				// left; abandon it.
				continue
			}
			st := state{key: n.Key, depth: depth, matched: matched, prov: entry.Provenance}
			if _, ok := visited[st]; ok {
				continue
			}
			if len(visited) >= c.opts.MaxVisited {
				truncated = true
				continue
			}
			visited[st] = struct{}{}
			stack = append(stack, frame{key: n.Key, depth: depth, entry: entry, matched: matched})
		}
	}

	return truncated, nil
}

// dedupe collapses discoveries to one compressed edge per
// (source, target, provenance), preserving first-seen order.
type dedupe struct {
	seen  map[dedupeKey]struct{}
	edges []core.CompressedEdge
}

type dedupeKey struct {
	source core.NodeKey
	target core.NodeKey
	prov   core.Provenance
}

func newDedupe() *dedupe {
	return &dedupe{seen: make(map[dedupeKey]struct{})}
}

func (d *dedupe) add(e core.CompressedEdge) {
	k := dedupeKey{source: e.Source, target: e.Target, prov: e.Provenance}
	if _, ok := d.seen[k]; ok {
		return
	}
	d.seen[k] = struct{}{}
	d.edges = append(d.edges, e)
}
