package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/ingest"
)

// newIngestCmd creates the ingest command.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <fact-file>...",
		Short: "Load analyzer fact files into the graph",
		Long: `Load one or more CSV fact files into the graph database. Each row is
one raw lineage edge with its provenance; temporary and subquery columns
are recognized by their name markers.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			loader := ingest.NewLoader(s, nil, logger)
			var edges, skipped int
			for _, path := range args {
				sum, err := loader.LoadFile(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %w", path, err)
				}
				edges += sum.Edges
				skipped += sum.Skipped
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d edges from %d file(s)", edges, len(args))
			if skipped > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (%d rows skipped)", skipped)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
