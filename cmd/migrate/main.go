// Command migrate applies, inspects and rolls back the embedded schema
// migrations for the social API database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"nodeback/internal/config"
	"nodeback/internal/database"

	"gorm.io/gorm"
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal(errUsage)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var db *gorm.DB
	if needsDB(flag.Arg(0)) {
		db, err = database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
	}

	if err := execute(context.Background(), db, cfg, flag.Args(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

var errUsage = errors.New("usage: migrate <up|auto|status|list|down> [version]")

func needsDB(cmd string) bool {
	return strings.ToLower(strings.TrimSpace(cmd)) != "list"
}

// execute runs one migrate subcommand and writes a human readable report to out.
func execute(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "list":
		for _, m := range database.GetMigrations() {
			fmt.Fprintln(out, m.String())
		}
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(out, "sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = config.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintf(out, "automigrated %d models\n", len(database.PersistentModels()))
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, v := range status.AppliedVersions {
			if m := database.GetMigrationByVersion(v); m != nil {
				fmt.Fprintf(out, "applied: %s\n", m)
			} else {
				fmt.Fprintf(out, "applied: %06d (not embedded in this build)\n", v)
			}
		}
		for _, m := range status.PendingMigrations {
			fmt.Fprintf(out, "pending: %s\n", &m)
		}
	case "down":
		if len(args) < 2 {
			return errors.New("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "rolled back %s\n", database.GetMigrationByVersion(version))
	default:
		return errUsage
	}

	return nil
}
