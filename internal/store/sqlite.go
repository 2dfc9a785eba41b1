package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// SQLiteStore is a persistent graph store over SQLite. Neighbor order is
// edge insertion order (rowid), so a finite, unchanged graph yields
// deterministic sequences.
type SQLiteStore struct {
	db   *sql.DB
	path string

	// maxNeighbors caps each Neighbors result; 0 means unlimited.
	maxNeighbors int
}

// NewSQLiteStore creates an unopened store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewSQLiteStoreWithDB wraps an existing connection, e.g. in tests.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens the database at path. Use ":memory:" for an in-memory graph.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetMaxNeighbors configures the per-node neighbor cap. Zero disables it.
func (s *SQLiteStore) SetMaxNeighbors(n int) {
	s.maxNeighbors = n
}

// AddNode records a node; re-adding an existing key is a no-op and the
// first recorded kind wins.
func (s *SQLiteStore) AddNode(ctx context.Context, node core.ColumnNode) error {
	if err := node.Key.Validate(); err != nil {
		return err
	}
	if node.Kind == "" {
		node.Kind = core.KindReal
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes (app, db_name, tbl_name, col_name, kind, data_type, owner)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.Key.App, node.Key.Database, node.Key.Table, node.Key.Column,
		string(node.Kind), node.DataType, node.Owner,
	)
	if err != nil {
		return &core.AdapterError{Op: "add node", Err: err}
	}
	return nil
}

// AddEdge records a raw lineage edge, creating missing endpoint nodes
// with the default REAL kind.
func (s *SQLiteStore) AddEdge(ctx context.Context, edge core.LineageEdge) error {
	for _, k := range []core.NodeKey{edge.Source, edge.Target} {
		if err := s.AddNode(ctx, core.ColumnNode{Key: k, Kind: core.KindReal}); err != nil {
			return err
		}
	}
	p := edge.Provenance
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (src_app, src_db, src_tbl, src_col,
		                    tar_app, tar_db, tar_tbl, tar_col,
		                    etl_system, etl_job, script_path, sql_no, expression, app_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		edge.Source.App, edge.Source.Database, edge.Source.Table, edge.Source.Column,
		edge.Target.App, edge.Target.Database, edge.Target.Table, edge.Target.Column,
		p.ETLSystem, p.ETLJob, p.ScriptPath, p.SQLNo, p.Expression, p.AppName,
	)
	if err != nil {
		return &core.AdapterError{Op: "add edge", Err: err}
	}
	return nil
}

const edgeColumns = `src_app, src_db, src_tbl, src_col,
	tar_app, tar_db, tar_tbl, tar_col,
	etl_system, etl_job, script_path, sql_no, expression, app_name`

// Neighbors returns adjacent (edge, node) pairs ordered by edge rowid.
// When a cap is configured and exceeded, the result is trimmed and the
// truncation flag raised rather than silently understated.
func (s *SQLiteStore) Neighbors(ctx context.Context, key core.NodeKey, dir core.EdgeDirection) ([]core.Neighbor, bool, error) {
	side := "src"
	if dir == core.Incoming {
		side = "tar"
	}
	q := fmt.Sprintf(
		`SELECT %s FROM edges
		 WHERE %s_app = ? AND %s_db = ? AND %s_tbl = ? AND %s_col = ?
		 ORDER BY id`,
		edgeColumns, side, side, side, side)
	args := []any{key.App, key.Database, key.Table, key.Column}
	if s.maxNeighbors > 0 {
		// One extra row detects the overflow.
		q += " LIMIT ?"
		args = append(args, s.maxNeighbors+1)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, false, &core.AdapterError{Op: "neighbors", Err: err}
	}
	defer rows.Close()

	var neighbors []core.Neighbor
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, false, &core.AdapterError{Op: "neighbors", Err: err}
		}
		n := core.Neighbor{Edge: edge, Key: edge.Target}
		if dir == core.Incoming {
			n.Key = edge.Source
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, false, &core.AdapterError{Op: "neighbors", Err: err}
	}

	truncated := false
	if s.maxNeighbors > 0 && len(neighbors) > s.maxNeighbors {
		neighbors = neighbors[:s.maxNeighbors]
		truncated = true
	}
	return neighbors, truncated, nil
}

// KindOf returns the node's kind or core.ErrNotFound.
func (s *SQLiteStore) KindOf(ctx context.Context, key core.NodeKey) (core.NodeKind, error) {
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind FROM nodes WHERE app = ? AND db_name = ? AND tbl_name = ? AND col_name = ?`,
		key.App, key.Database, key.Table, key.Column,
	).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return "", &core.AdapterError{Op: "kindOf", Err: err}
	}
	parsed, err := core.ParseNodeKind(kind)
	if err != nil {
		return "", &core.AdapterError{Op: "kindOf", Err: err}
	}
	return parsed, nil
}

// LookupByAttributes resolves an attribute filter to node keys, sorted
// for reproducible output.
func (s *SQLiteStore) LookupByAttributes(ctx context.Context, filter core.NodeFilter) ([]core.NodeKey, error) {
	if filter.Database == "" || filter.Table == "" {
		return nil, core.Invalidf("node filter requires database and table")
	}
	q := `SELECT app, db_name, tbl_name, col_name FROM nodes WHERE db_name = ? AND tbl_name = ?`
	args := []any{filter.Database, filter.Table}
	if filter.App != "" {
		q += " AND app = ?"
		args = append(args, filter.App)
	}
	if filter.Column != "" {
		q += " AND col_name = ?"
		args = append(args, filter.Column)
	}
	q += " ORDER BY app, db_name, tbl_name, col_name"

	return s.queryKeys(ctx, "lookup", q, args...)
}

// NodesByProvenance returns every node touching at least one edge
// matching the filter.
func (s *SQLiteStore) NodesByProvenance(ctx context.Context, filter core.ProvenanceFilter) ([]core.NodeKey, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.ETLJobs)), ",")
	where := `etl_system = ?`
	args := []any{filter.ETLSystem}
	if len(filter.ETLJobs) > 0 {
		where += ` AND etl_job IN (` + placeholders + `)`
		for _, job := range filter.ETLJobs {
			args = append(args, job)
		}
	}
	if filter.AppName != "" {
		where += ` AND app_name = ?`
		args = append(args, filter.AppName)
	}

	q := `SELECT DISTINCT src_app, src_db, src_tbl, src_col FROM edges WHERE ` + where +
		` UNION SELECT DISTINCT tar_app, tar_db, tar_tbl, tar_col FROM edges WHERE ` + where +
		` ORDER BY 1, 2, 3, 4`

	return s.queryKeys(ctx, "nodesByProvenance", q, append(append([]any{}, args...), args...)...)
}

func (s *SQLiteStore) queryKeys(ctx context.Context, op, q string, args ...any) ([]core.NodeKey, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &core.AdapterError{Op: op, Err: err}
	}
	defer rows.Close()

	var keys []core.NodeKey
	for rows.Next() {
		var k core.NodeKey
		if err := rows.Scan(&k.App, &k.Database, &k.Table, &k.Column); err != nil {
			return nil, &core.AdapterError{Op: op, Err: err}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.AdapterError{Op: op, Err: err}
	}
	return keys, nil
}

// Edges returns all raw edges in insertion order. Used by the fact-set
// comparison tooling.
func (s *SQLiteStore) Edges(ctx context.Context) ([]core.LineageEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM edges ORDER BY id`, edgeColumns))
	if err != nil {
		return nil, &core.AdapterError{Op: "edges", Err: err}
	}
	defer rows.Close()

	var edges []core.LineageEdge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, &core.AdapterError{Op: "edges", Err: err}
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.AdapterError{Op: "edges", Err: err}
	}
	return edges, nil
}

func scanEdge(rows *sql.Rows) (core.LineageEdge, error) {
	var e core.LineageEdge
	err := rows.Scan(
		&e.Source.App, &e.Source.Database, &e.Source.Table, &e.Source.Column,
		&e.Target.App, &e.Target.Database, &e.Target.Table, &e.Target.Column,
		&e.Provenance.ETLSystem, &e.Provenance.ETLJob, &e.Provenance.ScriptPath,
		&e.Provenance.SQLNo, &e.Provenance.Expression, &e.Provenance.AppName,
	)
	return e, err
}
