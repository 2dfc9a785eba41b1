package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// queryOptions holds the flags shared by the query subcommands.
type queryOptions struct {
	app            string
	db             string
	table          string
	direction      string
	depth          int
	transitive     bool
	includeNonReal bool
	page           int
}

func (o *queryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.app, "app", "", "Owning application")
	cmd.Flags().StringVar(&o.db, "db", "", "Database name")
	cmd.Flags().StringVar(&o.table, "table", "", "Table name")
	cmd.Flags().StringVar(&o.direction, "direction", "both", "Traversal direction (up|down|both)")
	cmd.Flags().IntVar(&o.depth, "depth", 0, "Maximum raw-edge path length")
	cmd.Flags().BoolVar(&o.transitive, "transitive", false, "Follow lineage through discovered real columns")
	cmd.Flags().BoolVar(&o.includeNonReal, "include-non-real", false, "Keep temporary and subquery columns in the start set")
	cmd.Flags().IntVar(&o.page, "page", 1, "Result page (1-based)")
}

func (o *queryOptions) request(kind query.Kind) query.Request {
	return query.Request{
		Kind:                  kind,
		App:                   o.app,
		Database:              o.db,
		Table:                 o.table,
		Direction:             parseDirection(o.direction),
		MaxDepth:              o.depth,
		Transitive:            o.transitive,
		IncludeNonRealAnchors: o.includeNonReal,
		PageNo:                o.page,
	}
}

func parseDirection(s string) core.Direction {
	switch strings.ToLower(s) {
	case "up", "upstream":
		return core.Upstream
	case "down", "downstream":
		return core.Downstream
	default:
		return core.BothDirections
	}
}

// runQuery executes the request against the configured store and renders
// the result page.
func runQuery(cmd *cobra.Command, req query.Request) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	orch := query.New(s, logger, queryDefaults(cfg))
	resp, err := orch.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	return renderResponse(cmd.OutOrStdout(), resp, cfg.Output)
}

// newQueryCmd creates the query command tree.
func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query compressed column lineage",
	}
	cmd.AddCommand(newQueryTableCmd())
	cmd.AddCommand(newQueryColumnCmd())
	cmd.AddCommand(newQueryJobCmd())
	return cmd
}

func newQueryTableCmd() *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Lineage for every real column of a table",
		Example: `  colgraph query table --db dw --table orders --direction down
  colgraph query table --db dw --table orders --transitive -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, opts.request(query.TableQuery))
		},
	}
	opts.bind(cmd)
	return cmd
}

func newQueryColumnCmd() *cobra.Command {
	opts := &queryOptions{}
	var columns []string
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Lineage for specific columns of a table",
		Example: `  colgraph query column --db dw --table orders --columns amount,qty`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := opts.request(query.ColumnBatchQuery)
			for _, c := range columns {
				req.Columns = append(req.Columns, core.NodeKey{
					App:      opts.app,
					Database: opts.db,
					Table:    opts.table,
					Column:   c,
				})
			}
			return runQuery(cmd, req)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Column names (comma separated)")
	return cmd
}

func newQueryJobCmd() *cobra.Command {
	var (
		system         string
		jobs           []string
		appName        string
		includeNonReal bool
		page           int
	)
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Lineage touched by specific ETL jobs",
		Example: `  colgraph query job --system datastage --jobs J_LOAD_ORDERS,J_LOAD_ITEMS`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, query.Request{
				Kind:                  query.JobQuery,
				ETLSystem:             system,
				ETLJobs:               jobs,
				AppName:               appName,
				IncludeNonRealAnchors: includeNonReal,
				PageNo:                page,
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "ETL system name")
	cmd.Flags().StringSliceVar(&jobs, "jobs", nil, "ETL job names (comma separated)")
	cmd.Flags().StringVar(&appName, "app-name", "", "Restrict to edges owned by this application")
	cmd.Flags().BoolVar(&includeNonReal, "include-non-real", false, "Keep temporary and subquery columns in the start set")
	cmd.Flags().IntVar(&page, "page", 1, "Result page (1-based)")
	return cmd
}
