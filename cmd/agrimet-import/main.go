// agrimet-import bulk-loads a CSV export of weather readings into the
// telemetry database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/agrimet-io/telemetry-api/config"
	"github.com/agrimet-io/telemetry-api/db"
	"github.com/agrimet-io/telemetry-api/importcsv"
)

var cli struct {
	File        string        `arg:"" type:"existingfile" help:"CSV file of weather readings."`
	DatabaseURL string        `env:"DATABASE_URL" required:"" help:"Postgres connection string."`
	DryRun      bool          `help:"Parse and validate rows without inserting."`
	Timeout     time.Duration `default:"10m" help:"Abort the import after this long."`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&cli, kong.Name("agrimet-import"),
		kong.Description("Bulk import weather readings from CSV."))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, cli.Timeout)
	defer timeoutCancel()

	store, err := db.New(ctx, cli.DatabaseURL, config.ConnectPolicy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
	})
	kctx.FatalIfErrorf(err)
	defer store.Close()

	err = store.Migrate(ctx)
	kctx.FatalIfErrorf(err)

	f, err := os.Open(cli.File)
	kctx.FatalIfErrorf(err)
	defer f.Close()

	result, err := importcsv.Run(ctx, store, f, cli.DryRun)
	for _, rowErr := range result.Errors {
		slog.Warn("row skipped", "line", rowErr.Line, "error", rowErr.Err)
	}
	kctx.FatalIfErrorf(err)

	verb := "imported"
	if cli.DryRun {
		verb = "validated"
	}
	fmt.Printf("%s %d readings, skipped %d\n", verb, result.Inserted, result.Skipped)
}
