package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"blockfilter-compactor/internal/compactor"
	"blockfilter-compactor/internal/config"
	"blockfilter-compactor/internal/store"
)

// startupRetryInterval is how long main waits between failed pool-acquire
// attempts, mirroring the source's retry on a failed asyncpg.create_pool.
const startupRetryInterval = 3 * time.Second

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	entry := log.WithField("component", "filter-compactor")
	entry.Info("starting block filter compactor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, ok := connectWithRetry(ctx, entry, cfg.DSN)
	if !ok {
		entry.Info("stopped")
		return
	}
	defer pool.Close()

	driver := compactor.NewDriver(store.New(pool), entry)
	if err := driver.Run(ctx); err != nil {
		entry.Fatal(fmt.Errorf("driver stopped: %w", err))
	}

	entry.Info("shut down cleanly")
}

// connectWithRetry acquires the Postgres pool, retrying indefinitely on
// failure: log a warning, sleep startupRetryInterval, try again (spec §7's
// startup-failure category). ok is false only when ctx is canceled while
// waiting, in which case main should exit cleanly without ever having run.
func connectWithRetry(ctx context.Context, log *logrus.Entry, dsn string) (*pgxpool.Pool, bool) {
	for {
		pool, err := store.Connect(ctx, dsn)
		if err == nil {
			return pool, true
		}
		log.WithError(err).Warn("failed to acquire database pool, retrying")

		timer := time.NewTimer(startupRetryInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		}
	}
}
