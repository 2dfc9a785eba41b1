package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Required fact-file columns; the remaining provenance columns are
// optional and default to the unknown marker.
var requiredColumns = []string{"src_db", "src_tbl", "src_col", "tar_db", "tar_tbl", "tar_col", "etl_job"}

// Summary reports one ingestion run.
type Summary struct {
	BatchID string
	Edges   int
	Skipped int
}

// Loader reads CSV fact files and writes them through a GraphWriter.
type Loader struct {
	writer   core.GraphWriter
	classify Classifier
	logger   *slog.Logger
}

// NewLoader creates a Loader. A nil classifier uses DefaultClassifier; a
// nil logger discards warnings.
func NewLoader(writer core.GraphWriter, classify Classifier, logger *slog.Logger) *Loader {
	if classify == nil {
		classify = DefaultClassifier
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{writer: writer, classify: classify, logger: logger}
}

// LoadFile ingests one CSV fact file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fact file: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load ingests CSV facts from a reader. The first row is the header; a
// malformed row is skipped with a warning rather than aborting the run.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Summary, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read fact header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("fact file is missing required column %q", name)
		}
	}

	sum := &Summary{BatchID: uuid.New().String()}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("skipping malformed fact row", "line", line, "error", err)
			sum.Skipped++
			continue
		}

		edge, srcKind, tarKind, err := l.parseRow(cols, row)
		if err != nil {
			l.logger.Warn("skipping invalid fact row", "line", line, "error", err)
			sum.Skipped++
			continue
		}

		if err := l.writer.AddNode(ctx, core.ColumnNode{Key: edge.Source, Kind: srcKind}); err != nil {
			return sum, err
		}
		if err := l.writer.AddNode(ctx, core.ColumnNode{Key: edge.Target, Kind: tarKind}); err != nil {
			return sum, err
		}
		if err := l.writer.AddEdge(ctx, edge); err != nil {
			return sum, err
		}
		sum.Edges++
	}

	l.logger.Info("ingested lineage facts",
		"batch", sum.BatchID, "edges", sum.Edges, "skipped", sum.Skipped)
	return sum, nil
}

func (l *Loader) parseRow(cols map[string]int, row []string) (core.LineageEdge, core.NodeKind, core.NodeKind, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	src := core.NodeKey{
		App:      get("src_app"),
		Database: get("src_db"),
		Table:    get("src_tbl"),
		Column:   get("src_col"),
	}
	tar := core.NodeKey{
		App:      get("tar_app"),
		Database: get("tar_db"),
		Table:    get("tar_tbl"),
		Column:   get("tar_col"),
	}

	sqlNo := core.UnknownSeq
	if raw := get("sql_no"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return core.LineageEdge{}, "", "", fmt.Errorf("invalid sql_no %q: %w", raw, err)
		}
		sqlNo = n
	}

	edge, err := core.NewLineageEdge(src, tar, core.Provenance{
		ETLSystem:  get("etl_system"),
		ETLJob:     get("etl_job"),
		ScriptPath: get("script_path"),
		SQLNo:      sqlNo,
		Expression: get("expression"),
		AppName:    get("app_name"),
	})
	if err != nil {
		return core.LineageEdge{}, "", "", err
	}

	srcKind, err := l.kindFor(get("src_kind"), src.Table)
	if err != nil {
		return core.LineageEdge{}, "", "", err
	}
	tarKind, err := l.kindFor(get("tar_kind"), tar.Table)
	if err != nil {
		return core.LineageEdge{}, "", "", err
	}
	return edge, srcKind, tarKind, nil
}

// kindFor prefers an explicit kind column; otherwise the classifier
// decides from the table name.
func (l *Loader) kindFor(explicit, table string) (core.NodeKind, error) {
	if explicit != "" {
		return core.ParseNodeKind(explicit)
	}
	return l.classify(table), nil
}
