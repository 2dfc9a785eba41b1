// Package core defines the domain types shared across colgraph: column
// nodes, lineage edges with ETL provenance, compressed real-to-real
// connections, the graph store contract, and the error kinds callers
// branch on.
//
// The package is intentionally free of storage and transport concerns;
// stores implement the GraphStore interface and the engine consumes it.
package core
