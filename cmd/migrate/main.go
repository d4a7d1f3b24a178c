package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/migrate"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|to|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations built into the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithField(context.Background(), "cmd", *cmd)

	// create and validate work on files only.
	switch *cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(orDefault(*dir), *name)
		exitOn(ctx, logg, "create migration", err)
		fmt.Println(path)
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.ValidateDir(orDefault(*dir)))
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})
	if cfg.FeatureFlags.UseSQLite {
		exitOn(ctx, logg, "select database", fmt.Errorf("migrations target postgres; sqlite schemas are built by the api on boot"))
	}

	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	exitOn(ctx, logg, "open database", err)
	defer sqlDB.Close()
	exitOn(ctx, logg, "ping database", sqlDB.PingContext(ctx))

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	exitOn(ctx, logg, "build runner", err)
	defer runner.Close()

	var applied []migrate.Applied
	switch *cmd {
	case "up":
		applied, err = runner.Up(ctx)
	case "down":
		applied, err = runner.Down(ctx)
	case "to":
		version, perr := strconv.ParseInt(*target, 10, 64)
		exitOn(ctx, logg, "parse -version", perr)
		applied, err = runner.To(ctx, version)
	case "status":
		versions, serr := runner.Status(ctx)
		exitOn(ctx, logg, "status", serr)
		for _, v := range versions {
			state := "pending"
			if !v.Pending() {
				state = "applied " + v.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%d  %-40s  %s\n", v.Version, v.Path, state)
		}
		return
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	exitOn(ctx, logg, *cmd, err)

	for _, a := range applied {
		fmt.Printf("%-4s %d %s (%s)\n", a.Direction, a.Version, a.Path, a.Took)
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "migrate done")
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
