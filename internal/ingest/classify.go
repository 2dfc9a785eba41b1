// Package ingest loads raw lineage facts into a graph store. The SQL
// parsing that produces the facts lives upstream of colgraph; this
// package only reads the emitted fact files, classifies node kinds by
// naming convention where the facts do not tag them explicitly, and
// writes nodes and edges through the core.GraphWriter contract.
package ingest

import (
	"strings"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Name markers the upstream SQL analyzer appends to transient tables.
const (
	TempTableSuffix = "_TEMP_TBL"
	SubquerySuffix  = "_SUBQRY_TBL"
)

// Classifier decides a node's kind from its table name. It is a pure
// function so deployments with different naming conventions can swap it
// without touching the loader.
type Classifier func(table string) core.NodeKind

// DefaultClassifier recognizes the analyzer's name markers. Subquery
// markers win over temp markers, mirroring the analyzer's tagging order.
func DefaultClassifier(table string) core.NodeKind {
	upper := strings.ToUpper(table)
	switch {
	case strings.HasSuffix(upper, SubquerySuffix):
		return core.KindSubquery
	case strings.HasSuffix(upper, TempTableSuffix):
		return core.KindTemporary
	default:
		return core.KindReal
	}
}
