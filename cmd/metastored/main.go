// Command metastored runs the metastore HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"metastore/api"
	"metastore/internal/config"
	"metastore/internal/logger"
	"metastore/internal/notify"
	"metastore/internal/service"
	"metastore/internal/store"
)

func main() {
	logger.Configure()
	cfg := config.Load()

	s, err := store.Open(cfg.DataPath)
	if err != nil {
		logger.Fatal("opening store at %s: %v", cfg.DataPath, err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := notify.NewAsyncDispatcher(ctx, notify.LogNotifier{}, cfg.NotifyWorkers)
	svc := service.New(s, dispatcher)
	router := api.NewRouter(cfg, svc)

	srv := &http.Server{
		Addr:         addr(cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		logger.Info("%s listening on %s", cfg.AppName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}
