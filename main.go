package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalogadmin/config"
	"catalogadmin/routers"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatalf("Failed to process configuration from environment variables: %v", err)
	}
	logger.SetLevel(cfg.Level())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx := context.Background()
	api, closeAPI, err := routers.NewAPI(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatalf("Failed to start catalog admin: %v", err)
	}
	defer closeAPI()

	api.WarmNames(ctx)
	if err := api.RefreshAll(ctx); err != nil {
		logger.Warnf("Initial load incomplete, lists stay empty until refreshed: %v", err)
	}

	router := routers.Route(api, logger, reg)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      servertiming.Middleware(router, nil),
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
	go func() {
		logger.Infof("Catalog admin listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
