package core

import (
	"fmt"
	"strings"
)

// NodeKind classifies a column node. REAL columns belong to persistent,
// business-meaningful tables; TEMPORARY and SUBQUERY columns are artifacts
// of SQL execution and are collapsed away by path compression.
//
// A node's kind is decided at ingestion time (by table-naming convention or
// script analysis) and is immutable afterwards; the engine never recomputes
// it.
type NodeKind string

const (
	KindReal      NodeKind = "REAL"
	KindTemporary NodeKind = "TEMPORARY"
	KindSubquery  NodeKind = "SUBQUERY"
)

// Real reports whether the kind denotes a persistent table column.
func (k NodeKind) Real() bool {
	return k == KindReal
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindReal, KindTemporary, KindSubquery:
		return true
	}
	return false
}

// ParseNodeKind parses a kind string as stored or ingested. The empty
// string defaults to REAL, matching the convention that only temp/subquery
// artifacts are tagged explicitly.
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "REAL":
		return KindReal, nil
	case "TEMPORARY", "TEMP":
		return KindTemporary, nil
	case "SUBQUERY":
		return KindSubquery, nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// NodeKey identifies one column instance. The composite
// (application, database, table, column) is globally unique within a
// lineage graph and is the sole basis for node equality.
type NodeKey struct {
	App      string
	Database string
	Table    string
	Column   string
}

// IsZero reports whether the key is entirely empty.
func (k NodeKey) IsZero() bool {
	return k == NodeKey{}
}

// Validate checks that the key has the fields node identity requires.
// App may be empty (single-application graphs omit it).
func (k NodeKey) Validate() error {
	if k.Database == "" || k.Table == "" || k.Column == "" {
		return fmt.Errorf("incomplete node key %q: database, table and column are required", k)
	}
	return nil
}

// String renders the key in app.db.table.column form for logs and errors.
func (k NodeKey) String() string {
	parts := make([]string, 0, 4)
	if k.App != "" {
		parts = append(parts, k.App)
	}
	parts = append(parts, k.Database, k.Table, k.Column)
	return strings.Join(parts, ".")
}

// ColumnNode is one column in the lineage graph. Nodes are created once
// per distinct key when first referenced by an edge and are read-only from
// the engine's perspective.
type ColumnNode struct {
	Key  NodeKey
	Kind NodeKind

	// Display-only attributes, irrelevant to compression.
	DataType string
	Owner    string
}

// NewColumnNode builds a node, defaulting the kind to REAL when the
// caller's convention-detection left it unset.
func NewColumnNode(key NodeKey, kind NodeKind) (ColumnNode, error) {
	if err := key.Validate(); err != nil {
		return ColumnNode{}, err
	}
	if kind == "" {
		kind = KindReal
	}
	if !kind.Valid() {
		return ColumnNode{}, fmt.Errorf("invalid node kind %q for %s", kind, key)
	}
	return ColumnNode{Key: key, Kind: kind}, nil
}
