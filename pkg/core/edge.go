package core

import "fmt"

// Unknown marks a provenance field whose value was absent at ingestion.
// An explicit marker keeps "no value" distinct from an empty string that
// slipped through a parser.
const Unknown = "(unknown)"

// UnknownSeq marks an absent SQL statement sequence number. Real sequence
// numbers start at 1.
const UnknownSeq = -1

// Provenance records why a lineage edge exists: which ETL system and job
// produced it, which script, which statement within the job, and
// optionally the transform expression and owning application.
type Provenance struct {
	ETLSystem  string
	ETLJob     string
	ScriptPath string
	SQLNo      int
	Expression string
	AppName    string
}

// Normalize replaces absent string fields with the Unknown marker and
// absent sequence numbers with UnknownSeq.
func (p Provenance) Normalize() Provenance {
	if p.ETLSystem == "" {
		p.ETLSystem = Unknown
	}
	if p.ScriptPath == "" {
		p.ScriptPath = Unknown
	}
	if p.Expression == "" {
		p.Expression = Unknown
	}
	if p.AppName == "" {
		p.AppName = Unknown
	}
	if p.SQLNo <= 0 {
		p.SQLNo = UnknownSeq
	}
	return p
}

// LineageEdge is one directed fact: Target's value is derived from Source
// in one ETL step. Multiple edges may exist between the same node pair
// (different jobs producing the same mapping); all are retained distinctly.
// Edges are immutable once recorded.
type LineageEdge struct {
	Source     NodeKey
	Target     NodeKey
	Provenance Provenance
}

// NewLineageEdge validates endpoint keys, requires an ETL-job identifier,
// and normalizes the remaining provenance fields.
func NewLineageEdge(source, target NodeKey, prov Provenance) (LineageEdge, error) {
	if err := source.Validate(); err != nil {
		return LineageEdge{}, fmt.Errorf("edge source: %w", err)
	}
	if err := target.Validate(); err != nil {
		return LineageEdge{}, fmt.Errorf("edge target: %w", err)
	}
	if prov.ETLJob == "" {
		return LineageEdge{}, fmt.Errorf("edge %s -> %s: etl job is required", source, target)
	}
	return LineageEdge{Source: source, Target: target, Provenance: prov.Normalize()}, nil
}

// CompressedEdge is a derived real-to-real connection discovered by path
// compression. It exists only for the duration of a query response and is
// never persisted. Provenance is attributed from the first raw edge along
// the discovered path, the one leaving Source.
type CompressedEdge struct {
	Source     NodeKey
	Target     NodeKey
	Provenance Provenance

	// Hops is the number of raw edges on the discovered path; 1 means a
	// direct real-to-real edge. Lets callers tell multi-hop rows apart
	// even though interior nodes are not reported.
	Hops int
}
