package root

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emberlane/wildbond/internal/adherence"
	"github.com/emberlane/wildbond/internal/api"
	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/mastery"
	"github.com/emberlane/wildbond/internal/oracle"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/rebellion"
	"github.com/emberlane/wildbond/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if dir := filepath.Dir(cfg.DBPath); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create data dir: %w", err)
				}
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("database opened", "path", cfg.DBPath)

			oracleClient := oracle.NewClient(cfg.AnthropicKey)
			if oracleClient != nil {
				slog.Info("choice oracle enabled")
			} else {
				slog.Warn("ANTHROPIC_API_KEY not set, rebellion paths requiring the oracle will fail")
			}
			if cfg.AdminKey == "" {
				slog.Warn("WILDBOND_ADMIN_KEY not set, mutating endpoints disabled")
			}

			sink := events.NewSink(db)
			curve := progression.NewCurve()
			ledger := progression.NewLedger(db, curve, sink)
			checker := adherence.NewChecker(nil)
			resolver := rebellion.NewResolver(db, checker, oracleClient, ledger, sink)

			server := &api.Server{
				DB:       db,
				Ledger:   ledger,
				Resolver: resolver,
				Mastery:  mastery.NewService(db),
				Port:     cfg.APIPort,
				AdminKey: cfg.AdminKey,
			}
			server.Start()

			fmt.Printf("Wildbond engine listening on :%d\n", cfg.APIPort)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig)
			return nil
		},
	}
}
