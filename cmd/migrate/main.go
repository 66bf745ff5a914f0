package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/db"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/migrate"
)

const usage = `usage: migrate <command> [args]

commands:
  up                apply all pending migrations
  down              roll back the latest migration
  status            list migrations and whether they are applied
  to <version>      migrate up or down to an exact version
  create <name>     write a new empty migration into ` + migrate.DefaultDir + `
  validate          check the embedded migration files
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	// create and validate never touch the database or need config
	switch command {
	case "create":
		if len(args) != 1 {
			exitf("create needs exactly one name argument")
		}
		path, err := migrate.CreateSQLMigration(migrate.DefaultDir, args[0], time.Now())
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.Validate(migrate.Migrations()); err != nil {
			exitf("invalid migrations: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to get sql handle", err)
		os.Exit(1)
	}
	runner, err := migrate.NewRunner(sqlDB, nil, logg)
	if err != nil {
		logg.Error(ctx, "failed to build migration runner", err)
		os.Exit(1)
	}

	if err := run(ctx, runner, command, args); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *migrate.Runner, command string, args []string) error {
	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		if len(args) != 1 {
			return errors.New("to needs a version argument (YYYYMMDDHHMMSS)")
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return runner.To(ctx, target)
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, row := range rows {
			state, at := "pending", "-"
			if row.Applied {
				state, at = "applied", row.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Version, state, at, row.Name)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
