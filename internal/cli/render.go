package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/colgraph/internal/config"
	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// renderResponse writes a query response in the configured format.
func renderResponse(w io.Writer, resp *query.Response, format string) error {
	switch format {
	case config.OutputJSON:
		return renderJSON(w, resp)
	case config.OutputCSV:
		return renderCSV(w, resp.Records)
	default:
		return renderTable(w, resp)
	}
}

func renderTable(w io.Writer, resp *query.Response) error {
	if len(resp.Records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(core.RecordFields))
	for i, col := range core.RecordFields {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, rec := range resp.Records {
		values := rec.Values()
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = v
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows, page %d)\n", len(resp.Records), resp.PageNo)
	if resp.Truncated {
		_, _ = fmt.Fprintln(w, "Warning: traversal hit a limit, results may be partial")
	}
	return nil
}

func renderJSON(w io.Writer, resp *query.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func renderCSV(w io.Writer, records []core.LineageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.RecordFields); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
