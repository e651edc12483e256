// Command chunkcored wires the chunk-handling core's long-lived
// in-process state (metrics store, connection pool) together and runs
// their background loops until told to stop. It is deliberately thin:
// the wire protocol, chunk file layout, read planning, and copies
// calculation are all request-scoped operations served by the
// internal packages directly, not by anything this command owns.
//
// Out of scope here (spec §1): the master metadata database, the
// FUSE/OS client bridge, session/auth handshake, config file parsing,
// a CLI probe/admin front-end, and exposing charts over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lizardfs/lizardfs-sub007/internal/connpool"
	"github.com/lizardfs/lizardfs-sub007/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("chunkcored exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	store := metrics.NewStore(logger)
	registerCoreStats(store)

	pool := connpool.New(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return connpool.RunSweepers(gctx, 30*time.Second, time.Now, pool)
	})

	logger.Info("chunkcored running")
	<-ctx.Done()
	logger.Info("chunkcored shutting down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// registerCoreStats registers the stats a chunkserver process tracks
// about itself; the values themselves are fed in by the request-serving
// code paths, not by this command.
func registerCoreStats(store *metrics.Store) {
	store.Register(metrics.StatDef{Name: "bytes_read", Mode: metrics.ModeAdd})
	store.Register(metrics.StatDef{Name: "bytes_written", Mode: metrics.ModeAdd})
	store.Register(metrics.StatDef{Name: "chunk_reads", Mode: metrics.ModeAdd})
	store.Register(metrics.StatDef{Name: "chunk_writes", Mode: metrics.ModeAdd})
	store.Register(metrics.StatDef{Name: "crc_errors", Mode: metrics.ModeAdd})
	store.Register(metrics.StatDef{Name: "peak_load", Mode: metrics.ModeMax})
}
