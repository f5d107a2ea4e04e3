package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/logger"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const usage = `usage: migrate [-dir ./migrations] <command> [args]

commands:
  up                 apply all pending migrations
  up-by-one          apply the next pending migration
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  down-to VERSION    roll back to VERSION
  reset              roll back every migration
  status             list applied and pending migrations
  version            print the current schema version
  create NAME        add an empty numbered SQL migration`

func main() {
	dir := flag.String("dir", "./migrations", "directory holding the goose SQL migrations")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	command, args := flag.Arg(0), flag.Args()[1:]
	if err := run(cfg, log, *dir, command, args); err != nil {
		log.Error("Migration failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, dir, command string, args []string) error {
	// Numbered file names, matching the existing migrations
	goose.SetSequential(true)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	// create only writes a file
	if command == "create" {
		if len(args) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		return goose.Create(nil, dir, args[0], "sql")
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	log.Info("Running migrations", zap.String("command", command), zap.String("dir", dir))
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return err
	}
	log.Info("Migrations finished", zap.String("command", command))
	return nil
}
