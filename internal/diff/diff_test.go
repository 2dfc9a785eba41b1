package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

func edge(t *testing.T, srcTbl, tarTbl, job string, seq int) core.LineageEdge {
	t.Helper()
	e, err := core.NewLineageEdge(
		core.NodeKey{Database: "dw", Table: srcTbl, Column: "c"},
		core.NodeKey{Database: "dw", Table: tarTbl, Column: "c"},
		core.Provenance{ETLSystem: "DS", ETLJob: job, SQLNo: seq},
	)
	require.NoError(t, err)
	return e
}

func TestCompare(t *testing.T) {
	shared := edge(t, "t1", "t2", "J1", 1)
	gone := edge(t, "t2", "t3", "J1", 2)
	added := edge(t, "t1", "t4", "J2", 1)

	r := Compare(
		[]core.LineageEdge{shared, gone},
		[]core.LineageEdge{added, shared},
	)
	assert.False(t, r.Empty())
	require.Len(t, r.Added, 1)
	assert.Equal(t, added, r.Added[0])
	require.Len(t, r.Removed, 1)
	assert.Equal(t, gone, r.Removed[0])
}

func TestCompare_Identical(t *testing.T) {
	e := edge(t, "t1", "t2", "J1", 1)
	r := Compare([]core.LineageEdge{e, e}, []core.LineageEdge{e})
	assert.True(t, r.Empty(), "duplicates within a set collapse")
}

func TestCompare_SortedOutput(t *testing.T) {
	e1 := edge(t, "t1", "t2", "J1", 2)
	e2 := edge(t, "t1", "t2", "J1", 1)
	e3 := edge(t, "a", "b", "J0", 9)

	r := Compare(nil, []core.LineageEdge{e1, e2, e3})
	require.Len(t, r.Added, 3)
	assert.Equal(t, e3, r.Added[0], "ordered by job then sequence")
	assert.Equal(t, e2, r.Added[1])
	assert.Equal(t, e1, r.Added[2])
}

func TestCompare_ProvenanceDistinguishesEdges(t *testing.T) {
	e1 := edge(t, "t1", "t2", "J1", 1)
	e2 := edge(t, "t1", "t2", "J1", 2)
	r := Compare([]core.LineageEdge{e1}, []core.LineageEdge{e2})
	assert.Len(t, r.Added, 1)
	assert.Len(t, r.Removed, 1)
}
