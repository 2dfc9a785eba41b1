package query

import (
	"sort"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Project maps compressed edges to the flat records consumed by export
// and reporting collaborators. Unknown provenance keeps its explicit
// marker.
func Project(edges []core.CompressedEdge) []core.LineageRecord {
	records := make([]core.LineageRecord, 0, len(edges))
	for _, e := range edges {
		records = append(records, core.LineageRecord{
			ETLSystem:      e.Provenance.ETLSystem,
			ETLJob:         e.Provenance.ETLJob,
			SQLSequenceNo:  e.Provenance.SQLNo,
			OwningApp:      e.Provenance.AppName,
			SourceDatabase: e.Source.Database,
			SourceTable:    e.Source.Table,
			SourceColumn:   e.Source.Column,
			TargetDatabase: e.Target.Database,
			TargetTable:    e.Target.Table,
			TargetColumn:   e.Target.Column,
		})
	}
	return records
}

// SortRecords orders records by (job, sequence number, source database,
// table, column), ties broken by target column, so repeated queries
// against an unchanged graph are reproducible. The remaining fields act
// as final tiebreakers to make the order total.
func SortRecords(records []core.LineageRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ETLJob != b.ETLJob {
			return a.ETLJob < b.ETLJob
		}
		if a.SQLSequenceNo != b.SQLSequenceNo {
			return a.SQLSequenceNo < b.SQLSequenceNo
		}
		if a.SourceDatabase != b.SourceDatabase {
			return a.SourceDatabase < b.SourceDatabase
		}
		if a.SourceTable != b.SourceTable {
			return a.SourceTable < b.SourceTable
		}
		if a.SourceColumn != b.SourceColumn {
			return a.SourceColumn < b.SourceColumn
		}
		if a.TargetColumn != b.TargetColumn {
			return a.TargetColumn < b.TargetColumn
		}
		if a.TargetDatabase != b.TargetDatabase {
			return a.TargetDatabase < b.TargetDatabase
		}
		if a.TargetTable != b.TargetTable {
			return a.TargetTable < b.TargetTable
		}
		return a.ETLSystem < b.ETLSystem
	})
}

// Paginate returns the requested 1-based page. Sort must already have
// been applied; paging the same unchanged result set is stable.
func Paginate(records []core.LineageRecord, pageSize, pageNo int) []core.LineageRecord {
	start := (pageNo - 1) * pageSize
	if start >= len(records) {
		return []core.LineageRecord{}
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}
