// Package diff compares two raw lineage fact sets, typically a store
// snapshot before and after re-ingesting an analyzer run.
package diff

import (
	"sort"

	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Report lists the raw edges present in exactly one of the two sets.
type Report struct {
	Added   []core.LineageEdge
	Removed []core.LineageEdge
}

// Empty reports whether the two sets carried the same edges.
func (r *Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// Compare diffs two edge sets. Duplicate edges within a set collapse to
// one occurrence; output is sorted for stable rendering.
func Compare(before, after []core.LineageEdge) *Report {
	old := make(map[core.LineageEdge]struct{}, len(before))
	for _, e := range before {
		old[e] = struct{}{}
	}
	cur := make(map[core.LineageEdge]struct{}, len(after))
	for _, e := range after {
		cur[e] = struct{}{}
	}

	r := &Report{}
	for e := range cur {
		if _, ok := old[e]; !ok {
			r.Added = append(r.Added, e)
		}
	}
	for e := range old {
		if _, ok := cur[e]; !ok {
			r.Removed = append(r.Removed, e)
		}
	}
	sortEdges(r.Added)
	sortEdges(r.Removed)
	return r
}

func sortEdges(edges []core.LineageEdge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Provenance.ETLJob != b.Provenance.ETLJob {
			return a.Provenance.ETLJob < b.Provenance.ETLJob
		}
		if a.Provenance.SQLNo != b.Provenance.SQLNo {
			return a.Provenance.SQLNo < b.Provenance.SQLNo
		}
		if a.Source != b.Source {
			return a.Source.String() < b.Source.String()
		}
		return a.Target.String() < b.Target.String()
	})
}
