package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/ferienplan-sync/internal/app"
	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
	"github.com/comitanigiacomo/ferienplan-sync/internal/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.New(config.EnvProd, "", "").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env, cfg.Log.Level, cfg.Log.File)
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting Ferienplan Sync",
		"env", cfg.Env,
		"db_driver", cfg.DB.Driver,
		"realtime", cfg.Sync.Realtime,
		"storage", cfg.Storage.Backend)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("Critical: failed to initialise", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("Errors while releasing resources", "error", err)
		}
	}()

	a.Start(ctx)

	// No WriteTimeout: the websocket feed keeps responses open.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     a.Router(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Critical server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Stop signal received. Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}

	log.Info("Server stopped gracefully.")
}
