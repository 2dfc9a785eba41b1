// Package query exposes the lineage query surface: table, column-batch
// and job/system queries built atop the path compression engine, with
// deterministic ordering, stable pagination and caller timeouts.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/colgraph/internal/compress"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Kind selects the request shape.
type Kind int

const (
	// TableQuery anchors on every REAL column of one table.
	TableQuery Kind = iota
	// ColumnBatchQuery anchors on an explicit set of column keys.
	ColumnBatchQuery
	// JobQuery anchors on every node touched by the given ETL jobs and
	// keeps only connections whose path involves those jobs.
	JobQuery
)

func (k Kind) String() string {
	switch k {
	case TableQuery:
		return "table"
	case ColumnBatchQuery:
		return "column"
	default:
		return "job"
	}
}

// Request is one lineage query. Which anchor fields are required depends
// on Kind; Validate rejects incomplete requests before any traversal.
type Request struct {
	Kind Kind

	// Table/column anchor.
	App      string
	Database string
	Table    string

	// Column-batch anchor; each key must belong to (Database, Table).
	Columns []core.NodeKey

	// Job anchor.
	ETLSystem string
	ETLJobs   []string
	AppName   string

	Direction core.Direction

	// MaxDepth bounds path length in raw edges; 0 selects the default.
	MaxDepth int

	// IncludeNonRealAnchors keeps TEMPORARY/SUBQUERY anchors in the
	// start set instead of silently dropping them. Off by default.
	IncludeNonRealAnchors bool

	// Transitive re-roots expansions at discovered REAL nodes until the
	// reachable closure is exhausted.
	Transitive bool

	PageSize int
	PageNo   int

	// Timeout aborts the traversal and returns accumulated results
	// marked partial. Zero uses the orchestrator default.
	Timeout time.Duration
}

// Response is an ordered page of flat lineage records.
type Response struct {
	Records   []core.LineageRecord `json:"data"`
	Truncated bool                 `json:"truncated"`
	PageNo    int                  `json:"pageNo"`
	PageSize  int                  `json:"pageSize"`

	// TotalReturnedThisPage is len(Records); the full result size is not
	// reported because traversal may be bounded.
	TotalReturnedThisPage int `json:"totalReturnedThisPage"`
}

// Defaults are the orchestrator-level fallbacks for caller-omitted knobs.
type Defaults struct {
	MaxDepth   int
	PageSize   int
	MaxVisited int
	Timeout    time.Duration
}

// DefaultPageSize matches the page size the export pipeline was tuned
// for.
const DefaultPageSize = 1000

// Orchestrator validates requests, resolves anchors, runs compression and
// shapes the result. It is stateless across queries and safe for
// concurrent use.
type Orchestrator struct {
	store    core.GraphStore
	logger   *slog.Logger
	defaults Defaults
}

// New creates an Orchestrator. Zero-valued defaults fall back to the
// package constants.
func New(store core.GraphStore, logger *slog.Logger, defaults Defaults) *Orchestrator {
	if defaults.MaxDepth <= 0 {
		defaults.MaxDepth = compress.DefaultMaxDepth
	}
	if defaults.PageSize <= 0 {
		defaults.PageSize = DefaultPageSize
	}
	if defaults.MaxVisited <= 0 {
		defaults.MaxVisited = compress.DefaultMaxVisited
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{store: store, logger: logger, defaults: defaults}
}

// Run executes one query: validate, resolve anchors, expand, project,
// sort, paginate.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	req, err := o.normalize(req)
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	anchors, err := o.resolveAnchors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &Response{PageNo: req.PageNo, PageSize: req.PageSize}
	if len(anchors) == 0 {
		// An anchor matching nothing is an empty result, not an error.
		resp.Records = []core.LineageRecord{}
		return resp, nil
	}

	opts := compress.Options{MaxDepth: req.MaxDepth, MaxVisited: o.defaults.MaxVisited}
	direction := req.Direction
	if req.Kind == JobQuery {
		filter := core.ProvenanceFilter{
			ETLSystem: req.ETLSystem,
			ETLJobs:   req.ETLJobs,
			AppName:   req.AppName,
		}
		opts.EdgeFilter = func(e core.LineageEdge) bool {
			return filter.Matches(e.Provenance)
		}
		// Job queries always look both ways from the participating set.
		direction = core.BothDirections
	}
	cmp := compress.New(o.store, o.logger, opts)

	edges, truncated, err := o.expand(ctx, cmp, anchors, direction, req.Transitive)
	if err != nil {
		return nil, err
	}
	resp.Truncated = truncated

	records := Project(edges)
	SortRecords(records)
	resp.Records = Paginate(records, req.PageSize, req.PageNo)
	resp.TotalReturnedThisPage = len(resp.Records)
	return resp, nil
}

// normalize applies defaults and rejects malformed requests.
func (o *Orchestrator) normalize(req Request) (Request, error) {
	if req.MaxDepth < 0 {
		return req, core.Invalidf("max depth must not be negative, got %d", req.MaxDepth)
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = o.defaults.MaxDepth
	}
	if req.PageSize < 0 {
		return req, core.Invalidf("page size must not be negative, got %d", req.PageSize)
	}
	if req.PageSize == 0 {
		req.PageSize = o.defaults.PageSize
	}
	if req.PageNo < 0 {
		return req, core.Invalidf("page number must not be negative, got %d", req.PageNo)
	}
	if req.PageNo == 0 {
		req.PageNo = 1
	}
	if req.Timeout == 0 {
		req.Timeout = o.defaults.Timeout
	}

	switch req.Kind {
	case TableQuery:
		if req.Database == "" || req.Table == "" {
			return req, core.Invalidf("table query requires database and table")
		}
	case ColumnBatchQuery:
		if req.Database == "" || req.Table == "" {
			return req, core.Invalidf("column query requires database and table")
		}
		if len(req.Columns) == 0 {
			return req, core.Invalidf("column query requires at least one column key")
		}
		for _, k := range req.Columns {
			if err := k.Validate(); err != nil {
				return req, core.Invalidf("column key %q: %v", k, err)
			}
			if k.Database != req.Database || k.Table != req.Table {
				return req, core.Invalidf("column key %s does not belong to %s.%s", k, req.Database, req.Table)
			}
		}
	case JobQuery:
		if req.ETLSystem == "" {
			return req, core.Invalidf("job query requires an etl system")
		}
		if len(req.ETLJobs) == 0 {
			return req, core.Invalidf("job query requires at least one etl job")
		}
		for _, job := range req.ETLJobs {
			if job == "" {
				return req, core.Invalidf("job query must not contain empty job names")
			}
		}
	default:
		return req, core.Invalidf("unknown query kind %d", req.Kind)
	}
	return req, nil
}

// resolveAnchors turns the request's anchor description into concrete
// node keys, dropping non-real nodes unless the caller opted in.
func (o *Orchestrator) resolveAnchors(ctx context.Context, req Request) ([]core.NodeKey, error) {
	var candidates []core.NodeKey
	var err error

	switch req.Kind {
	case TableQuery:
		candidates, err = o.store.LookupByAttributes(ctx, core.NodeFilter{
			App:      req.App,
			Database: req.Database,
			Table:    req.Table,
		})
	case ColumnBatchQuery:
		candidates = req.Columns
	case JobQuery:
		candidates, err = o.store.NodesByProvenance(ctx, core.ProvenanceFilter{
			ETLSystem: req.ETLSystem,
			ETLJobs:   req.ETLJobs,
			AppName:   req.AppName,
		})
	}
	if err != nil {
		return nil, err
	}

	anchors := make([]core.NodeKey, 0, len(candidates))
	for _, k := range candidates {
		kind, err := o.store.KindOf(ctx, k)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				o.logger.Warn("anchor not present in graph, skipping", "node", k.String())
				continue
			}
			return nil, err
		}
		if !kind.Real() && !req.IncludeNonRealAnchors {
			continue
		}
		anchors = append(anchors, k)
	}
	return anchors, nil
}

// expand runs the compression engine, optionally chasing transitive
// closure by re-rooting at every newly discovered REAL node.
func (o *Orchestrator) expand(ctx context.Context, cmp *compress.Compressor, roots []core.NodeKey, dir core.Direction, transitive bool) ([]core.CompressedEdge, bool, error) {
	res, err := cmp.Expand(ctx, roots, dir)
	if err != nil {
		return nil, false, err
	}
	if !transitive {
		return res.Edges, res.Truncated, nil
	}

	expanded := make(map[core.NodeKey]struct{}, len(roots))
	for _, r := range roots {
		expanded[r] = struct{}{}
	}

	all := newEdgeSet()
	all.addAll(res.Edges)
	truncated := res.Truncated

	frontier := discoveredEndpoints(res.Edges, dir, expanded)
	for len(frontier) > 0 {
		if ctx.Err() != nil {
			return all.edges, true, nil
		}
		res, err = cmp.Expand(ctx, frontier, dir)
		if err != nil {
			return nil, false, err
		}
		all.addAll(res.Edges)
		if res.Truncated {
			truncated = true
		}
		for _, k := range frontier {
			expanded[k] = struct{}{}
		}
		frontier = discoveredEndpoints(res.Edges, dir, expanded)
	}
	return all.edges, truncated, nil
}

// discoveredEndpoints returns the far endpoints of compressed edges that
// have not served as expansion roots yet.
func discoveredEndpoints(edges []core.CompressedEdge, dir core.Direction, expanded map[core.NodeKey]struct{}) []core.NodeKey {
	seen := make(map[core.NodeKey]struct{})
	var next []core.NodeKey
	add := func(k core.NodeKey) {
		if _, done := expanded[k]; done {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		next = append(next, k)
	}
	for _, e := range edges {
		switch dir {
		case core.Downstream:
			add(e.Target)
		case core.Upstream:
			add(e.Source)
		default:
			add(e.Source)
			add(e.Target)
		}
	}
	return next
}

// edgeSet deduplicates compressed edges across repeated expansions.
type edgeSet struct {
	seen  map[edgeIdentity]struct{}
	edges []core.CompressedEdge
}

type edgeIdentity struct {
	source core.NodeKey
	target core.NodeKey
	prov   core.Provenance
}

func newEdgeSet() *edgeSet {
	return &edgeSet{seen: make(map[edgeIdentity]struct{})}
}

func (s *edgeSet) addAll(edges []core.CompressedEdge) {
	for _, e := range edges {
		id := edgeIdentity{source: e.Source, target: e.Target, prov: e.Provenance}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.edges = append(s.edges, e)
	}
}
