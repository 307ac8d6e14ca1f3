package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/app"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/config"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const catalogRefreshInterval = 10 * time.Minute

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := app.NewLogger("info")

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize swap engine")
	}

	a.LoadCatalog(ctx)
	go a.RefreshCatalogEvery(ctx, catalogRefreshInterval)

	signer, err := a.LocalWallet()
	if err != nil {
		logger.WithError(err).Fatal("invalid WALLET_PRIVATE_KEY")
	}
	if signer == nil {
		logger.Warn("no server wallet configured, POST /v1/swaps is disabled")
	} else {
		logger.WithField("wallet", signer).Info("server wallet loaded")
	}

	h := &server.Handlers{
		Engine:  a.Engine,
		Catalog: a.Catalog,
		Flags:   a.Flags,
		Wallet:  signer,
		Logger:  logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":   cfg.APIAddr,
		"chains": a.Engine.Chains(),
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("server did not close")
	}

	// Submitted transactions keep confirming after the listener stops.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ConfirmTimeout+10*time.Second)
	defer drainCancel()
	if err := a.Close(drainCtx); err != nil {
		logger.WithError(err).Warn("swap engine did not drain cleanly")
	}
}
