// Command mockrelay serves a verifying relay for local load-test runs.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/relay-loadgen/internal/relay"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main starts the relay and shuts it down on SIGINT/SIGTERM.
func main() {
	addr := flag.String("addr", ":7447", "listen address")
	path := flag.String("path", "/", "websocket path")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rl := relay.New(logger)
	mux := http.NewServeMux()
	mux.Handle(*path, rl.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr), zap.String("path", *path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
	}

	st := rl.Stats()
	logger.Info("shutdown complete",
		zap.Int64("accepted", st.Accepted),
		zap.Int64("rejected", st.Rejected),
		zap.Int64("reqs", st.Reqs),
		zap.Int64("closes", st.Closes),
		zap.Int64("notices", st.Notices),
	)
}
