package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/colgraph/internal/store"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

func TestDefaultClassifier(t *testing.T) {
	assert.Equal(t, core.KindReal, DefaultClassifier("orders"))
	assert.Equal(t, core.KindTemporary, DefaultClassifier("stage_orders_TEMP_TBL"))
	assert.Equal(t, core.KindTemporary, DefaultClassifier("stage_orders_temp_tbl"), "case-insensitive")
	assert.Equal(t, core.KindSubquery, DefaultClassifier("q1_SUBQRY_TBL"))
}

const facts = `etl_system,etl_job,sql_no,src_db,src_tbl,src_col,tar_db,tar_tbl,tar_col
DS,J1,1,dw,orders,amount,dw,stage_TEMP_TBL,amount
DS,J1,2,dw,stage_TEMP_TBL,amount,dw,report,total
`

func TestLoader_Load(t *testing.T) {
	s := store.NewMemoryStore()
	l := NewLoader(s, nil, nil)

	sum, err := l.Load(context.Background(), strings.NewReader(facts))
	require.NoError(t, err)
	assert.NotEmpty(t, sum.BatchID)
	assert.Equal(t, 2, sum.Edges)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 2, s.EdgeCount())

	kind, err := s.KindOf(context.Background(), core.NodeKey{Database: "dw", Table: "stage_TEMP_TBL", Column: "amount"})
	require.NoError(t, err)
	assert.Equal(t, core.KindTemporary, kind, "classifier tags transient tables")

	kind, err = s.KindOf(context.Background(), core.NodeKey{Database: "dw", Table: "report", Column: "total"})
	require.NoError(t, err)
	assert.Equal(t, core.KindReal, kind)

	edges := s.Edges()
	assert.Equal(t, "J1", edges[0].Provenance.ETLJob)
	assert.Equal(t, 1, edges[0].Provenance.SQLNo)
	assert.Equal(t, core.Unknown, edges[0].Provenance.ScriptPath, "missing provenance normalized")
}

func TestLoader_ExplicitKindOverridesClassifier(t *testing.T) {
	input := `etl_job,src_db,src_tbl,src_col,src_kind,tar_db,tar_tbl,tar_col
J1,dw,orders,amount,SUBQUERY,dw,report,total
`
	s := store.NewMemoryStore()
	_, err := NewLoader(s, nil, nil).Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	kind, err := s.KindOf(context.Background(), core.NodeKey{Database: "dw", Table: "orders", Column: "amount"})
	require.NoError(t, err)
	assert.Equal(t, core.KindSubquery, kind)
}

func TestLoader_SkipsBadRows(t *testing.T) {
	input := `etl_job,sql_no,src_db,src_tbl,src_col,tar_db,tar_tbl,tar_col
J1,1,dw,orders,amount,dw,report,total
J1,nope,dw,orders,amount,dw,report,total2
,1,dw,orders,amount,dw,report,total3
`
	s := store.NewMemoryStore()
	sum, err := NewLoader(s, nil, nil).Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Edges)
	assert.Equal(t, 2, sum.Skipped, "bad sql_no and missing job are skipped, not fatal")
}

func TestLoader_MissingHeaderColumn(t *testing.T) {
	input := "etl_job,src_db,src_tbl,src_col\nJ1,dw,orders,amount\n"
	_, err := NewLoader(store.NewMemoryStore(), nil, nil).Load(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tar_db")
}

func TestLoader_CustomClassifier(t *testing.T) {
	custom := func(table string) core.NodeKind {
		if strings.HasPrefix(table, "tmp_") {
			return core.KindTemporary
		}
		return core.KindReal
	}
	input := `etl_job,src_db,src_tbl,src_col,tar_db,tar_tbl,tar_col
J1,dw,tmp_x,c,dw,report,total
`
	s := store.NewMemoryStore()
	_, err := NewLoader(s, custom, nil).Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	kind, err := s.KindOf(context.Background(), core.NodeKey{Database: "dw", Table: "tmp_x", Column: "c"})
	require.NoError(t, err)
	assert.Equal(t, core.KindTemporary, kind)
}
