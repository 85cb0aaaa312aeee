package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/config"
	"github.com/claude/stoicmint/internal/history"
	"github.com/claude/stoicmint/internal/mint"
	"github.com/claude/stoicmint/internal/server"
	"github.com/claude/stoicmint/internal/session"
	"github.com/claude/stoicmint/internal/wallet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("stoicmint starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("cluster selected", "network", cfg.Cluster.Network, "endpoint", cfg.Cluster.RPCEndpoint())

	cat, err := catalog.Load()
	if err != nil {
		log.Error("failed to load workout catalog", "error", err)
		os.Exit(1)
	}
	log.Info("workout catalog loaded", "workouts", cat.Len())

	store, err := history.Open(cfg.History.DBPath, log)
	if err != nil {
		log.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("history store opened", "path", cfg.History.DBPath, "completions", len(store.All()))

	w, err := wallet.Open(cfg.Cluster.RPCEndpoint(), cfg.Wallet.KeypairPath, wallet.Options{
		ConfirmTimeout: cfg.Mint.ConfirmTimeout(),
		ConfirmPoll:    cfg.Mint.ConfirmPoll(),
	}, log)
	if err != nil {
		log.Error("failed to open wallet", "error", err)
		os.Exit(1)
	}
	if account, ok := w.ConnectedAccount(); ok {
		log.Info("wallet loaded", "account", account.String())
	}

	pipeline := mint.NewPipeline(w, cfg.Mint.MinBalanceLamports(), log)
	sess := session.New(store)
	srv := server.New(cat, sess, store, pipeline, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	log.Info("server starting", "addr", addr)

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
