// Package cli provides the command-line interface for colgraph.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/config"
	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/internal/store"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "colgraph",
		Short: "colgraph - Column-level lineage engine",
		Long: `colgraph ingests column-level lineage facts emitted by SQL analyzers,
compresses chains of temporary and subquery columns into direct edges
between real columns, and answers table, column and job lineage queries.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Column-level lineage engine
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./colgraph.yaml)")
	rootCmd.PersistentFlags().String("store", "", "Path to the graph database")
	rootCmd.PersistentFlags().Int("max-depth", 0, "Maximum raw-edge path length per traversal")
	rootCmd.PersistentFlags().Int("max-visited", 0, "Maximum visited states per traversal")
	rootCmd.PersistentFlags().Int("max-neighbors", 0, "Per-node neighbor cap (0 = unlimited)")
	rootCmd.PersistentFlags().Int("page-size", 0, "Records per result page")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputJSON, config.OutputCSV}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens and migrates the configured graph database.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s := store.NewSQLiteStore()
	if err := s.Open(cfg.StorePath); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if cfg.MaxNeighbors > 0 {
		s.SetMaxNeighbors(cfg.MaxNeighbors)
	}
	return s, nil
}

// queryDefaults maps the configuration onto orchestrator defaults.
func queryDefaults(cfg *config.Config) query.Defaults {
	return query.Defaults{
		MaxDepth:   cfg.MaxDepth,
		PageSize:   cfg.PageSize,
		MaxVisited: cfg.MaxVisited,
		Timeout:    cfg.QueryTimeout,
	}
}
