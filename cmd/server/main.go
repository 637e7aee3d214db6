package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xmlstore/backend/internal/api"
	"github.com/xmlstore/backend/internal/config"
	"github.com/xmlstore/backend/internal/logging"
	"github.com/xmlstore/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		logging.L().Fatal().Err(err).Msg("xmlstore stopped")
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath(), "path to the XML or YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logging.Init(cfg.Advanced.LogLevel, cfg.Advanced.HumanLogs)
	log := logging.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, cfg)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:        store,
		Version:      Version,
		MaxListLimit: cfg.Query.MaxListLimit,
	}))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("config", *configPath).
		Str("listen", cfg.GetServerAddr()).
		Str("data_dir", cfg.GetDataDir()).
		Str("database", cfg.GetDatabasePath()).
		Str("driver", cfg.Storage.Driver).
		Msg("XML structure store starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// defaultConfigPath places the config next to the executable
func defaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "xmlstore.config"
	}
	return filepath.Join(filepath.Dir(exePath), "xmlstore.config")
}
