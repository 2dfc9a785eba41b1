package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/colgraph/internal/store"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

func col(table, column string) core.NodeKey {
	return core.NodeKey{Database: "dw", Table: table, Column: column}
}

func addNode(t *testing.T, s *store.MemoryStore, key core.NodeKey, kind core.NodeKind) {
	t.Helper()
	require.NoError(t, s.AddNode(context.Background(), core.ColumnNode{Key: key, Kind: kind}))
}

func addEdge(t *testing.T, s *store.MemoryStore, src, tgt core.NodeKey, job string, seq int) {
	t.Helper()
	e, err := core.NewLineageEdge(src, tgt, core.Provenance{ETLSystem: "DS", ETLJob: job, SQLNo: seq})
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(context.Background(), e))
}

// chainStore builds the canonical scenario: t1.c1 (REAL) feeds a temp
// column which feeds t2.c2 (REAL), via job J1 statements 1 and 2.
func chainStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	tmp := col("mid_TEMP_TBL", "c")
	addNode(t, s, tmp, core.KindTemporary)
	addEdge(t, s, col("t1", "c1"), tmp, "J1", 1)
	addEdge(t, s, tmp, col("t2", "c2"), "J1", 2)
	return s
}

func TestRun_TableDownstream(t *testing.T) {
	o := New(chainStore(t), nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind:      TableQuery,
		Database:  "dw",
		Table:     "t1",
		Direction: core.Downstream,
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	r := resp.Records[0]
	assert.Equal(t, "t1", r.SourceTable)
	assert.Equal(t, "c1", r.SourceColumn)
	assert.Equal(t, "t2", r.TargetTable)
	assert.Equal(t, "c2", r.TargetColumn)
	assert.Equal(t, "J1", r.ETLJob)
	assert.Equal(t, 1, r.SQLSequenceNo, "attributed to the first statement on the path")
	assert.Equal(t, 1, resp.TotalReturnedThisPage)
	assert.False(t, resp.Truncated)
}

func TestRun_TableUpstream(t *testing.T) {
	o := New(chainStore(t), nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind:      TableQuery,
		Database:  "dw",
		Table:     "t2",
		Direction: core.Upstream,
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "t1", resp.Records[0].SourceTable)
	assert.Equal(t, "t2", resp.Records[0].TargetTable)
}

func TestRun_Validation(t *testing.T) {
	o := New(store.NewMemoryStore(), nil, Defaults{})
	ctx := context.Background()

	cases := []Request{
		{Kind: TableQuery},
		{Kind: TableQuery, Database: "dw"},
		{Kind: TableQuery, Database: "dw", Table: "t", MaxDepth: -1},
		{Kind: TableQuery, Database: "dw", Table: "t", PageSize: -5},
		{Kind: TableQuery, Database: "dw", Table: "t", PageNo: -1},
		{Kind: ColumnBatchQuery, Database: "dw", Table: "t"},
		{Kind: ColumnBatchQuery, Database: "dw", Table: "t", Columns: []core.NodeKey{{}}},
		{Kind: ColumnBatchQuery, Database: "dw", Table: "t",
			Columns: []core.NodeKey{{Database: "other", Table: "t", Column: "c"}}},
		{Kind: JobQuery},
		{Kind: JobQuery, ETLSystem: "DS"},
		{Kind: JobQuery, ETLSystem: "DS", ETLJobs: []string{""}},
	}
	for i, req := range cases {
		_, err := o.Run(ctx, req)
		require.Error(t, err, "case %d", i)
		assert.True(t, core.IsInvalidRequest(err), "case %d: %v", i, err)
	}
}

func TestRun_MissingAnchorIsEmptyResult(t *testing.T) {
	o := New(chainStore(t), nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind:      TableQuery,
		Database:  "dw",
		Table:     "no_such_table",
		Direction: core.Downstream,
	})
	require.NoError(t, err, "an unmatched anchor is not an error")
	assert.Empty(t, resp.Records)
	assert.False(t, resp.Truncated)
}

func TestRun_ColumnBatch(t *testing.T) {
	s := chainStore(t)
	addEdge(t, s, col("t1", "other"), col("t3", "c"), "J9", 1)
	o := New(s, nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind:      ColumnBatchQuery,
		Database:  "dw",
		Table:     "t1",
		Columns:   []core.NodeKey{col("t1", "c1")},
		Direction: core.Downstream,
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1, "only the requested column is traced")
	assert.Equal(t, "c1", resp.Records[0].SourceColumn)
}

func TestRun_ColumnBatchSkipsMissingKeys(t *testing.T) {
	o := New(chainStore(t), nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind:      ColumnBatchQuery,
		Database:  "dw",
		Table:     "t1",
		Columns:   []core.NodeKey{col("t1", "c1"), col("t1", "ghost")},
		Direction: core.Downstream,
	})
	require.NoError(t, err, "a missing column key is skipped, not fatal")
	assert.Len(t, resp.Records, 1)
}

func TestRun_SkipNonRealAnchors(t *testing.T) {
	s := chainStore(t)
	o := New(s, nil, Defaults{})
	tmp := col("mid_TEMP_TBL", "c")

	// The temp column is dropped from the start set by default.
	resp, err := o.Run(context.Background(), Request{
		Kind:      ColumnBatchQuery,
		Database:  "dw",
		Table:     "mid_TEMP_TBL",
		Columns:   []core.NodeKey{tmp},
		Direction: core.Downstream,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Records)

	// Opting in anchors it anyway.
	resp, err = o.Run(context.Background(), Request{
		Kind:                  ColumnBatchQuery,
		Database:              "dw",
		Table:                 "mid_TEMP_TBL",
		Columns:               []core.NodeKey{tmp},
		Direction:             core.Downstream,
		IncludeNonRealAnchors: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "t2", resp.Records[0].TargetTable)
}

func TestRun_JobQuery(t *testing.T) {
	s := store.NewMemoryStore()
	tmp := col("stage_TEMP_TBL", "c")
	addNode(t, s, tmp, core.KindTemporary)
	addEdge(t, s, col("t1", "c1"), tmp, "J1", 1)
	addEdge(t, s, tmp, col("t2", "c2"), "J1", 2)
	// An unrelated job sharing the graph.
	addEdge(t, s, col("t3", "c3"), col("t4", "c4"), "J2", 1)

	o := New(s, nil, Defaults{})
	resp, err := o.Run(context.Background(), Request{
		Kind:      JobQuery,
		ETLSystem: "DS",
		ETLJobs:   []string{"J1"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1, "edges from other jobs are filtered out")
	assert.Equal(t, "J1", resp.Records[0].ETLJob)
	assert.Equal(t, "t1", resp.Records[0].SourceTable)
	assert.Equal(t, "t2", resp.Records[0].TargetTable)
}

func TestRun_JobQueryAppFilter(t *testing.T) {
	s := store.NewMemoryStore()
	e1, err := core.NewLineageEdge(col("t1", "c1"), col("t2", "c2"),
		core.Provenance{ETLSystem: "DS", ETLJob: "J1", SQLNo: 1, AppName: "bdp"})
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(context.Background(), e1))
	e2, err := core.NewLineageEdge(col("t3", "c3"), col("t4", "c4"),
		core.Provenance{ETLSystem: "DS", ETLJob: "J1", SQLNo: 2, AppName: "crm"})
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(context.Background(), e2))

	o := New(s, nil, Defaults{})
	resp, err := o.Run(context.Background(), Request{
		Kind:      JobQuery,
		ETLSystem: "DS",
		ETLJobs:   []string{"J1"},
		AppName:   "bdp",
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "bdp", resp.Records[0].OwningApp)
}

// fanStore builds one source table whose column feeds n distinct targets,
// each via its own job name, to exercise ordering and pagination.
func fanStore(t *testing.T, n int) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	src := col("t1", "c1")
	for i := 0; i < n; i++ {
		addEdge(t, s, src, col(fmt.Sprintf("out%02d", i), "c"), fmt.Sprintf("J%02d", n-1-i), 1)
	}
	return s
}

func TestRun_Ordering(t *testing.T) {
	o := New(fanStore(t, 5), nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind: TableQuery, Database: "dw", Table: "t1", Direction: core.Downstream,
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 5)
	for i := 1; i < len(resp.Records); i++ {
		assert.LessOrEqual(t, resp.Records[i-1].ETLJob, resp.Records[i].ETLJob,
			"records sorted by job name regardless of insertion order")
	}
}

func TestRun_PaginationConsistency(t *testing.T) {
	o := New(fanStore(t, 7), nil, Defaults{})
	base := Request{Kind: TableQuery, Database: "dw", Table: "t1", Direction: core.Downstream}

	full, err := o.Run(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, full.Records, 7)

	var paged []core.LineageRecord
	for page := 1; ; page++ {
		req := base
		req.PageSize = 3
		req.PageNo = page
		resp, err := o.Run(context.Background(), req)
		require.NoError(t, err)
		if len(resp.Records) == 0 {
			break
		}
		assert.Equal(t, len(resp.Records), resp.TotalReturnedThisPage)
		paged = append(paged, resp.Records...)
	}
	assert.Equal(t, full.Records, paged, "concatenated pages reproduce the full sorted set")
}

func TestRun_PaginationStable(t *testing.T) {
	o := New(fanStore(t, 7), nil, Defaults{})
	req := Request{
		Kind: TableQuery, Database: "dw", Table: "t1", Direction: core.Downstream,
		PageSize: 2, PageNo: 2,
	}

	first, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Records, second.Records)
}

func TestRun_Transitive(t *testing.T) {
	// t1 -> t2 -> t3 are separate real-to-real hops; transitive closure
	// reaches t3 from t1 while the plain query stops at t2.
	s := store.NewMemoryStore()
	addEdge(t, s, col("t1", "c1"), col("t2", "c2"), "J1", 1)
	addEdge(t, s, col("t2", "c2"), col("t3", "c3"), "J2", 1)
	o := New(s, nil, Defaults{})

	base := Request{Kind: TableQuery, Database: "dw", Table: "t1", Direction: core.Downstream}
	plain, err := o.Run(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, plain.Records, 1)

	base.Transitive = true
	closed, err := o.Run(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, closed.Records, 2)
}

func TestRun_BothDirections(t *testing.T) {
	s := store.NewMemoryStore()
	addEdge(t, s, col("up", "c"), col("mid", "c"), "J1", 1)
	addEdge(t, s, col("mid", "c"), col("down", "c"), "J1", 2)
	o := New(s, nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind: TableQuery, Database: "dw", Table: "mid", Direction: core.BothDirections,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 2)
}

func TestRun_TruncationSurfaces(t *testing.T) {
	s := fanStore(t, 4)
	s.SetMaxNeighbors(2)
	o := New(s, nil, Defaults{})

	resp, err := o.Run(context.Background(), Request{
		Kind: TableQuery, Database: "dw", Table: "t1", Direction: core.Downstream,
	})
	require.NoError(t, err)
	assert.True(t, resp.Truncated)
	assert.Len(t, resp.Records, 2)
}
