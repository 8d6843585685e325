package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/HashimCodeDev/stve/internal/aggregate"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/httpapi"
	"github.com/HashimCodeDev/stve/internal/ingestor"
	"github.com/HashimCodeDev/stve/internal/logging"
	"github.com/HashimCodeDev/stve/internal/metrics"
	"github.com/HashimCodeDev/stve/internal/notify"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

// NewServeCommand wires every collaborator and runs the HTTP/WebSocket
// adapter until SIGINT/SIGTERM, mirroring the teacher's main() wiring
// order: config, logging, store, then the business collaborators.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and WebSocket event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	log.Info().Str("db_path", cfg.DBPath).Int("http_port", cfg.HTTPPort).Msg("starting stved")

	if cfg.EnableDatadog {
		metrics.Init(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bus := broadcaster.New(cfg.BroadcastBufferSize)
	sender := notify.NewNtfySender(cfg.NtfyTopic)
	tickets := ticketmanager.New(st, bus, sender)
	ig := ingestor.New(st, cfg, tickets, bus)
	reader := aggregate.New(st)
	srv := httpapi.NewServer(st, ig, tickets, reader, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.HTTPPort)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info().Msg("shutdown signal received, exiting")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}
