package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/analytics"
	"linkroute/internal/pkg/logger"
	"linkroute/internal/platform/config"
	"linkroute/internal/platform/database"
	"linkroute/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	sweeper := workers.NewRetentionSweeper(analytics.NewRepository(db), cfg.Analytics.Retention, cfg.Analytics.SweepInterval)

	if *once {
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("sweep failed")
		}
		log.Info().Int64("deleted", n).Msg("sweep finished")
		return
	}

	log.Info().
		Dur("retention", cfg.Analytics.Retention).
		Dur("interval", cfg.Analytics.SweepInterval).
		Msg("click retention worker started")
	sweeper.Run(ctx)
	log.Info().Msg("worker stopped")
}
