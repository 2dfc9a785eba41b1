package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/colgraph/internal/server"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lineage query API over HTTP",
		Long: `Start the HTTP API. With --watch, CSV fact files dropped into the
facts directory are ingested as they appear.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			if cmd.Flags().Changed("listen-addr") {
				cfg.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
			}
			if cmd.Flags().Changed("facts-dir") {
				cfg.FactsDir, _ = cmd.Flags().GetString("facts-dir")
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			srv := server.NewServer(server.Config{
				Store:    s,
				Defaults: queryDefaults(cfg),
				Addr:     cfg.ListenAddr,
				Watch:    watch,
				FactsDir: cfg.FactsDir,
				Logger:   logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Ingest fact files as they land in the facts directory")
	cmd.Flags().String("listen-addr", "", "HTTP bind address")
	cmd.Flags().String("facts-dir", "", "Directory watched for fact files")
	return cmd
}
