package core

import "strconv"

// LineageRecord is the flat row handed to export and reporting
// collaborators. Field names match the tabular export contract; absent
// provenance keeps its explicit Unknown marker rather than being coerced
// to a default.
type LineageRecord struct {
	ETLSystem      string `json:"etlSystem"`
	ETLJob         string `json:"etlJob"`
	SQLSequenceNo  int    `json:"sqlSequenceNo"`
	OwningApp      string `json:"owningApp"`
	SourceDatabase string `json:"sourceDatabase"`
	SourceTable    string `json:"sourceTable"`
	SourceColumn   string `json:"sourceColumn"`
	TargetDatabase string `json:"targetDatabase"`
	TargetTable    string `json:"targetTable"`
	TargetColumn   string `json:"targetColumn"`
}

// RecordFields is the canonical column order for tabular output.
var RecordFields = []string{
	"etlSystem",
	"etlJob",
	"sqlSequenceNo",
	"owningApp",
	"sourceDatabase",
	"sourceTable",
	"sourceColumn",
	"targetDatabase",
	"targetTable",
	"targetColumn",
}

// Values returns the record's fields in RecordFields order. An unknown
// sequence number renders as the Unknown marker, not as a number.
func (r LineageRecord) Values() []string {
	seq := Unknown
	if r.SQLSequenceNo != UnknownSeq {
		seq = strconv.Itoa(r.SQLSequenceNo)
	}
	return []string{
		r.ETLSystem,
		r.ETLJob,
		seq,
		r.OwningApp,
		r.SourceDatabase,
		r.SourceTable,
		r.SourceColumn,
		r.TargetDatabase,
		r.TargetTable,
		r.TargetColumn,
	}
}
