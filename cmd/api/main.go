package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"recraftgen/internal/http/handlers"
	httpapi "recraftgen/internal/http/httpapi"
	"recraftgen/internal/infra"
	"recraftgen/internal/providers/fal"
	"recraftgen/internal/providers/recraft"
	"recraftgen/internal/settings"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Per-user settings come from Postgres when configured, env defaults otherwise.
	var (
		source settings.Source
		db     handlers.Pinger
	)
	if cfg.HasDatabase() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		source = settings.NewStore(infra.NewSQLRunner(dbpool, logger))
		db = dbpool
		if cfg.JWTSecret == "" {
			logger.Warn().Msg("JWT_SECRET not set, stored user settings are unreachable over HTTP")
		}
	} else {
		logger.Info().Msg("DATABASE_URL not set, serving env defaults to every user")
	}
	resolver := settings.NewResolver(settings.FromConfig(cfg), source, &logger)

	client := fal.NewClient(fal.Options{
		BaseURL:        cfg.FalBaseURL,
		Model:          cfg.FalModel,
		RequestTimeout: cfg.FalRequestTimeout,
		Logger:         &logger,
	})
	generator := recraft.NewGenerator(client, &logger)

	app := handlers.NewApp(generator, resolver, &logger)
	app.DB = db
	router := httpapi.NewRouter(app, logger, httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("model", client.Model()).Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
