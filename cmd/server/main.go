package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"linkroute/internal/api"
	"linkroute/internal/api/handlers"
	"linkroute/internal/api/middleware"
	"linkroute/internal/engine/analytics"
	"linkroute/internal/engine/links"
	"linkroute/internal/engine/redirect"
	"linkroute/internal/engine/visitor"
	"linkroute/internal/pkg/geoip"
	"linkroute/internal/pkg/logger"
	"linkroute/internal/platform/audit"
	"linkroute/internal/platform/auth"
	"linkroute/internal/platform/config"
	"linkroute/internal/platform/database"
	"linkroute/internal/platform/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = randomSecret()
		log.Warn().Msg("jwt.secret is empty, using a random secret; tokens will not survive a restart")
	}

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		if len(applied) > 0 {
			log.Info().Strs("versions", applied).Msg("applied migrations")
		}
	}

	cache, rc := newLinkCache(ctx, cfg.Cache)
	if rc != nil {
		defer rc.Close()
	}

	geo, closeGeo := newGeoResolver(cfg.GeoIP)
	defer closeGeo()

	zone, err := time.LoadLocation(cfg.GeoIP.DefaultTimezone)
	if err != nil {
		log.Fatal().Err(err).Msg("bad default timezone")
	}
	extractor := visitor.NewExtractor(geo, cfg.GeoIP.LookupTimeout, zone)

	// Repositories
	linkRepo := links.NewRepository(db)
	clickRepo := analytics.NewRepository(db)
	auditLog := audit.NewLogger(db)

	// Services
	loader := redirect.NewCachedLoader(linkRepo, cache)
	linkSvc := links.NewService(linkRepo).WithInvalidator(loader).WithAuditor(auditLog)
	tokenSvc := auth.NewTokenService(cfg.JWT)
	resolver := redirect.NewResolver(loader, extractor, tokenSvc)

	var forwarder *analytics.Forwarder
	if cfg.Analytics.ForwardURL != "" {
		forwarder = analytics.NewForwarder(cfg.Analytics.ForwardURL, cfg.Analytics.Secret, cfg.Analytics.ForwardTimeout)
	}
	recorder := analytics.NewRecorder(clickRepo, linkRepo, forwarder, cfg.Analytics.QueueSize, cfg.Analytics.Workers).
		WithEnricher(extractor)

	// Router
	trustProxy := cfg.Server.TrustProxy
	deps := &api.Dependencies{
		LinkHandler:      handlers.NewLinkHandler(linkSvc, tokenSvc, cfg.Domains, cfg.Links),
		RedirectHandler:  handlers.NewRedirectHandler(resolver, linkSvc, extractor, tokenSvc, recorder, trustProxy),
		AnalyticsHandler: handlers.NewAnalyticsHandler(linkSvc, clickRepo, recorder, trustProxy),
		AuditHandler:     handlers.NewAuditHandler(linkSvc, auditLog),
		HealthHandler:    handlers.NewHealthHandler(db, rc),
		MetricsHandler:   handlers.NewMetricsHandler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc),
		RateLimit:        cfg.RateLimit,
		ShortDomain:      cfg.Domains.ShortDomain,
		TrustProxy:       trustProxy,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("short_domain", cfg.Domains.ShortDomain).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("click recorder did not drain")
	}
}

func newLinkCache(ctx context.Context, cfg config.CacheConfig) (redirect.LinkCache, *redis.Client) {
	if cfg.Driver != "redis" {
		return redirect.NewMemoryCache(cfg.LinkTTL), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("bad redis url")
	}
	rc := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", opts.Addr).Msg("failed to connect to redis")
	}

	return redirect.NewRedisCache(rc, cfg.LinkTTL), rc
}

func newGeoResolver(cfg config.GeoIPConfig) (geoip.Resolver, func()) {
	if cfg.DatabasePath != "" {
		mm, err := geoip.NewMaxMindResolver(cfg.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open geoip database")
		}
		return mm, func() { _ = mm.Close() }
	}

	table := make(map[string]geoip.Location, len(cfg.Static))
	for _, n := range cfg.Static {
		table[n.CIDR] = geoip.Location{
			Country:     n.Country,
			CountryCode: n.CountryCode,
			City:        n.City,
			TimeZone:    n.TimeZone,
		}
	}
	static, err := geoip.NewStaticResolver(table)
	if err != nil {
		log.Fatal().Err(err).Msg("bad static geoip table")
	}
	log.Warn().Int("networks", len(table)).Msg("no geoip database configured, using static networks")
	return static, func() {}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("failed to generate jwt secret")
	}
	return hex.EncodeToString(b)
}
