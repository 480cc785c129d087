package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/taskdep"
	"github.com/meikuraledutech/taskdep/postgres"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "taskdep",
	})

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":3000"
	}

	lockTimeout := taskdep.DefaultLockTimeout
	if v := os.Getenv("LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Fatal("invalid LOCK_TIMEOUT", "value", v, "err", err)
		}
		lockTimeout = d
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		logger.Fatal("connect", "err", err)
	}
	defer pool.Close()

	engine := taskdep.New(
		postgres.New(pool),
		postgres.NewAuditSink(pool),
		taskdep.WithLockTimeout(lockTimeout),
	)

	app := newApp(engine, logger)

	logger.Info("listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("listen", "err", err)
	}
}
