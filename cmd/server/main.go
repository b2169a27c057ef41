package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/dmtable/encounter-backend/internal/accounts"
	"github.com/dmtable/encounter-backend/internal/config"
	"github.com/dmtable/encounter-backend/internal/httpapi"
	"github.com/dmtable/encounter-backend/internal/hub"
	"github.com/dmtable/encounter-backend/internal/importer"
	"github.com/dmtable/encounter-backend/internal/monsters"
	"github.com/dmtable/encounter-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	auth, err := accounts.NewService(st.DB(), cfg.JWTSecret)
	if err != nil {
		return err
	}

	catalog, err := monsters.NewCatalog(st.DB())
	if err != nil {
		return err
	}

	var provider importer.Provider
	if cfg.ImportBaseURL != "" {
		provider = importer.NewHTTPProvider(cfg.ImportBaseURL, cfg.ImportLabel)
	} else {
		logger.Warn("IMPORT_BASE_URL not set, character import disabled")
	}

	h := hub.NewHub(ctx, st, provider, nil, logger)

	api := httpapi.New(st, auth, h, catalog, provider, logger)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.SetupRoutes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
