package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gridfall/internal/config"
	"gridfall/internal/logging"
	"gridfall/internal/server"
	"gridfall/internal/session"
	"gridfall/internal/storage"
)

const shutdownWait = 5 * time.Second

var (
	// flagconf is the config flag.
	flagconf string
	flagaddr string
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf gridfall.yaml")
	flag.StringVar(&flagaddr, "addr", "", "listen address, overrides config")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(flagconf, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if flagaddr != "" {
		cfg.Server.Addr = flagaddr
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg.Server, log); err != nil {
		log.Error("server", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Server, log *zap.Logger) error {
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	mgr := session.NewManager(store, log.Named("channels"))
	if err := mgr.Restore(); err != nil {
		log.Warn("restore channels", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(mgr, store, log.Named("server")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mgr.CleanupLoop(ctx, cfg.CleanupInterval, cfg.StaleAfter)
		return nil
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}
