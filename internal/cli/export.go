package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// newExportCmd creates the export command.
func newExportCmd() *cobra.Command {
	opts := &queryOptions{}
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a table's full lineage as CSV",
		Long: `Run a table lineage query and write every result page as CSV, either
to stdout or to a file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			req := opts.request(query.TableQuery)
			req.PageSize = query.DefaultPageSize

			orch := query.New(s, logger, queryDefaults(cfg))
			cw := csv.NewWriter(w)
			if err := cw.Write(core.RecordFields); err != nil {
				return err
			}
			truncated := false
			rows := 0
			for page := 1; ; page++ {
				req.PageNo = page
				resp, err := orch.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				for _, rec := range resp.Records {
					if err := cw.Write(rec.Values()); err != nil {
						return err
					}
				}
				rows += len(resp.Records)
				truncated = truncated || resp.Truncated
				if len(resp.Records) < req.PageSize {
					break
				}
			}
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}

			if outPath != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", rows, outPath)
			}
			if truncated {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: traversal hit a limit, export may be partial")
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: stdout)")
	return cmd
}
