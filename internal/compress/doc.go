// Package compress implements the lineage path compression engine.
//
// Given a set of starting nodes and a traversal direction, it discovers
// every REAL column reachable by a path whose interior consists solely of
// TEMPORARY or SUBQUERY nodes, and collapses each such path into a single
// compressed real-to-real edge. Provenance is attributed from the first
// raw edge along the discovered path, the one leaving the source endpoint.
//
// Traversal is bounded by a maximum path depth and a maximum number of
// visited states, so cyclic graphs terminate and runaway queries are cut
// off with an explicit truncation signal rather than hanging.
//
// # Basic Usage
//
//	c := compress.New(graphStore, logger, compress.Options{MaxDepth: 5})
//	res, err := c.Expand(ctx, anchors, core.Downstream)
//	if err != nil {
//	    return err
//	}
//	for _, e := range res.Edges {
//	    fmt.Printf("%s -> %s via %s\n", e.Source, e.Target, e.Provenance.ETLJob)
//	}
package compress
