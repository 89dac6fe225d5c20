package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"convosync/internal/retention"
	"convosync/pkg/api"
	"convosync/pkg/api/handlers"
	"convosync/pkg/auth"
	"convosync/pkg/banner"
	"convosync/pkg/config"
	"convosync/pkg/logger"
	"convosync/pkg/shutdown"
	"convosync/pkg/store"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		logger.Init("")
		shutdown.Abort("failed to load config", err, "")
	}
	envCfg, envRes := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		logger.Init("")
		shutdown.Abort("failed to resolve config", err, "")
	}
	cfg := eff.Config

	logger.Init(cfg.Logging.Level)

	if err := store.Open(eff.DBPath); err != nil {
		shutdown.Abort("failed to open pebble", err, eff.DBPath)
	}
	defer func() { _ = store.Close() }()

	config.SetRuntime(&config.RuntimeConfig{Tokens: cfg.TokenMap()})
	handlers.SetMaxBody(cfg.Server.MaxBody.Int64())

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	stopRetention, err := retention.Start(ctx, cfg.Retention)
	if err != nil {
		shutdown.Abort("failed to start retention", err, eff.DBPath)
	}
	defer stopRetention()

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}
	banner.Print(eff, verStr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/", api.Handler())

	secCfg := auth.SecConfig{
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
	}
	srv := &http.Server{
		Addr:              eff.Addr,
		Handler:           auth.Middleware(secCfg)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		_ = srv.Shutdown(shCtx)
	}()

	logger.Info("server_starting", "addr", eff.Addr, "db", eff.DBPath, "config_source", eff.Source)
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	var errServe error
	if cert != "" && key != "" {
		errServe = srv.ListenAndServeTLS(cert, key)
	} else {
		errServe = srv.ListenAndServe()
	}
	if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		shutdown.Abort("http server failed", errServe, eff.DBPath)
	}
	logger.Info("server_stopped")
}
