package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gridfall/internal/config"
	"gridfall/internal/console"
	"gridfall/internal/logging"
	"gridfall/internal/scores"
	"gridfall/internal/transport"
)

const dialWait = 5 * time.Second

var (
	// flagconf is the config flag.
	flagconf    string
	flagserver  string
	flagnick    string
	flagoffline bool
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf gridfall.yaml")
	flag.StringVar(&flagserver, "server", "", "websocket url, eg: ws://localhost:8080/ws")
	flag.StringVar(&flagnick, "nick", "", "nickname")
	flag.BoolVar(&flagoffline, "offline", false, "play offline even if a server is configured")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(flagconf, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if flagserver != "" {
		cfg.Client.Server = flagserver
	}
	if flagnick != "" {
		cfg.Client.Nick = flagnick
	}
	if flagoffline {
		cfg.Client.Server = ""
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg.Client, log); err != nil {
		log.Error("client", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Client, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := scores.Load(cfg.ScoreFile, log.Named("scores"))
	if err != nil {
		return err
	}

	opts := console.Options{
		In:     os.Stdin,
		Out:    os.Stdout,
		Queue:  cfg.Queue(),
		Nick:   cfg.Nick,
		Scores: table,
		Seed:   uint64(time.Now().UnixNano()),
		Log:    log,
	}
	if cfg.Server != "" {
		conn, err := dial(ctx, cfg.Server, log)
		switch {
		case err == nil:
			opts.Conn = conn
		case cfg.RequireServer:
			return err
		default:
			log.Warn("server unavailable, playing offline", zap.String("server", cfg.Server), zap.Error(err))
		}
	}

	err = console.New(opts).Run(ctx)
	if errors.Is(err, console.ErrDisconnected) && !cfg.RequireServer {
		log.Warn("server went away", zap.Error(err))
		return nil
	}
	return err
}

func dial(ctx context.Context, url string, log *zap.Logger) (*transport.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialWait)
	defer cancel()
	return transport.Dial(ctx, url, log.Named("transport"))
}
