package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"linkroute/internal/pkg/logger"
	"linkroute/internal/platform/config"
	"linkroute/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Give up after this long")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if len(applied) == 0 {
		log.Info().Msg("database is up to date")
		return
	}
	log.Info().Strs("versions", applied).Msg("migration completed successfully")
}
