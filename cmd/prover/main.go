package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stealthnote/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "prover:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	p, err := app.NewProver(cfg, log)
	if err != nil {
		return err
	}

	if err := p.Keys.RefreshAll(ctx); err != nil {
		log.Warn("initial issuer key refresh failed", "err", err)
	}
	interval := cfg.KeyRefresh
	if interval <= 0 {
		interval = time.Hour
	}
	go p.Keys.RunAll(ctx, interval)

	srv := p.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Info("prover listening", "addr", srv.Addr, "prover_key", p.PublicKey)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
