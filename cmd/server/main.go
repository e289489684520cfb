package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"netpong/internal/config"
	"netpong/internal/replay"
	"netpong/internal/server"
	"netpong/internal/spectate"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// run takes an optional port as its only positional argument.
func run(args []string) error {
	cfg, err := config.Load(os.Getenv("PONG_CONFIG"))
	if err != nil {
		return err
	}
	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Port = port
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)})))

	opts, err := cfg.ServerOptions()
	if err != nil {
		return err
	}

	if cfg.ReplayDir != "" {
		rec, manifest, err := replay.NewRecorder(cfg.ReplayDir, opts.Session.Codec.Name(), cfg.TickRate, nil)
		if err != nil {
			return fmt.Errorf("open recorder: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				slog.Warn("could not close recorder", slog.Any("error", err))
			}
		}()
		slog.Info("recording match", slog.String("dir", rec.Directory()), slog.String("match", manifest.MatchID))
		opts.Recorder = rec
	}

	var hub *spectate.Hub
	if cfg.SpectatorAddr != "" {
		hub = spectate.NewHub()
		opts.Spectators = hub
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(opts)
	if err := srv.Listen(); err != nil {
		return err
	}
	fmt.Printf("Pong server listening on %s\n", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if hub != nil {
		g.Go(func() error { return hub.Serve(gctx, cfg.SpectatorAddr) })
	}
	return g.Wait()
}
