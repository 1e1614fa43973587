package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"barnyard/internal/api"
	authapp "barnyard/internal/app/auth"
	"barnyard/internal/app/dialog"
	"barnyard/internal/app/journal"
	worldapp "barnyard/internal/app/world"
	domainworld "barnyard/internal/domain/world"
	"barnyard/internal/platform/cache"
	"barnyard/internal/platform/config"
	"barnyard/internal/platform/db"
	"barnyard/internal/platform/migrate"
	"barnyard/internal/platform/mq"
	"barnyard/internal/platform/observability"
)

var (
	serveAddr string
	serveMap  string
	serveSeed int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world server",
	Long:  `Run the simulation with the HTTP API, websocket stream, event journal and event bus.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveMap, "map", "", "tile map file (overrides WORLD_MAP_FILE)")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", 0, "world seed (overrides WORLD_SEED)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = serveAddr
	}
	if cmd.Flags().Changed("map") {
		cfg.WorldMapFile = serveMap
	}
	if cmd.Flags().Changed("seed") {
		cfg.WorldSeed = serveSeed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; continuing without cache")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		events api.EventLog
		sink   worldapp.EventSink
		jrnl   *journal.Journal
	)
	if cfg.PostgresURL != "" {
		pg, err := db.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pg.Close()
		if err := migrate.Up(ctx, pg, os.DirFS(cfg.MigrationDir)); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		jrnl = journal.New(logger, pg, redisClient, cfg.EventsCacheTTL, cfg.JournalBuffer)
		events, sink = jrnl, jrnl
	} else {
		logger.Info().Msg("POSTGRES_URL not set; event journal disabled")
	}

	publisher, err := mq.NewPublisher(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable; using noop publisher")
		publisher = mq.NewNoopPublisher()
	}
	defer publisher.Close()

	tiles, err := worldapp.LoadTileMap(cfg.WorldMapFile)
	if err != nil {
		logger.Fatal().Err(err).Str("map", cfg.WorldMapFile).Msg("load tile map failed")
	}

	dialogs := dialog.NewProvider(logger, redisClient, dialog.Config{
		File:     cfg.DialogFile,
		APIURL:   cfg.DialogAPIURL,
		APIKey:   cfg.DialogAPIKey,
		Model:    cfg.DialogModel,
		Timeout:  cfg.DialogTimeout,
		CacheTTL: cfg.DialogCacheTTL,
	})
	simCfg := domainworld.DefaultConfig()
	simCfg.Seed = cfg.WorldSeed
	simCfg.Dialog = dialogs.Load(ctx)
	sim, err := domainworld.New(tiles, simCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed world failed")
	}
	logger.Info().
		Str("map", cfg.WorldMapFile).
		Int("width", tiles.Width()).
		Int("height", tiles.Height()).
		Int("creatures", len(sim.Creatures())).
		Msg("world seeded")

	authSvc, err := authapp.NewService(cfg.OperatorPassword, cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	if cfg.OperatorPassword == "" {
		logger.Warn().Msg("OPERATOR_PASSWORD not set; all websocket clients are spectators")
	}

	// World must stop before the journal so no events arrive after Close.
	worldSvc := worldapp.NewService(logger, publisher, sink, sim, cfg.WorldTickRate, cfg.SnapshotEvery)
	worldSvc.Start()

	handler := api.NewHandler(logger, authSvc, worldSvc, events, cfg.CorsOrigin, cfg.MaxRequestBody)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Int("tick_rate", cfg.WorldTickRate).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	worldSvc.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if jrnl != nil {
		if err := jrnl.Close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("journal drain failed")
		}
		if n := jrnl.Dropped(); n > 0 {
			logger.Warn().Int64("dropped", n).Msg("journal dropped events")
		}
	}
	st := worldSvc.Stats()
	logger.Info().Uint64("frames", st.Frames).Int("deaths", st.Deaths).Msg("server stopped")
	return nil
}
