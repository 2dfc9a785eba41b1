package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/diff"
	"github.com/leapstack-labs/colgraph/internal/store"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// newDiffCmd creates the diff command.
func newDiffCmd() *cobra.Command {
	var exitCode bool
	cmd := &cobra.Command{
		Use:   "diff <before.db> <after.db>",
		Short: "Compare the raw edges of two graph databases",
		Long: `Compare the raw lineage edges of two graph databases, typically a
snapshot before and after re-ingesting an analyzer run. Added edges are
prefixed with "+", removed edges with "-".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := readEdges(cmd, args[0])
			if err != nil {
				return err
			}
			after, err := readEdges(cmd, args[1])
			if err != nil {
				return err
			}

			report := diff.Compare(before, after)
			out := cmd.OutOrStdout()
			for _, e := range report.Removed {
				_, _ = fmt.Fprintf(out, "- %s\n", formatEdge(e))
			}
			for _, e := range report.Added {
				_, _ = fmt.Fprintf(out, "+ %s\n", formatEdge(e))
			}
			_, _ = fmt.Fprintf(out, "%d added, %d removed\n", len(report.Added), len(report.Removed))

			if exitCode && !report.Empty() {
				return fmt.Errorf("fact sets differ")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when the fact sets differ")
	return cmd
}

func readEdges(cmd *cobra.Command, path string) ([]core.LineageEdge, error) {
	s := store.NewSQLiteStore()
	if err := s.Open(path); err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.Edges(cmd.Context())
}

func formatEdge(e core.LineageEdge) string {
	var b strings.Builder
	b.WriteString(e.Source.String())
	b.WriteString(" -> ")
	b.WriteString(e.Target.String())
	b.WriteString("  [")
	b.WriteString(e.Provenance.ETLJob)
	if e.Provenance.SQLNo != core.UnknownSeq {
		fmt.Fprintf(&b, " #%d", e.Provenance.SQLNo)
	}
	b.WriteString("]")
	return b.String()
}
