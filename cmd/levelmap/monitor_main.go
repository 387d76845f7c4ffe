package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradelevels/levelmap/internal/application"
	httpiface "github.com/tradelevels/levelmap/internal/interfaces/http"
)

func runMonitor(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	analyzer, err := application.New(cfg, log.Logger)
	if err != nil {
		return err
	}

	serverCfg := httpiface.DefaultServerConfig()
	if addr != "" {
		serverCfg.Addr = addr
	}
	server := httpiface.NewServer(serverCfg, analyzer, httpiface.NewMetricsRegistry(), log.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
