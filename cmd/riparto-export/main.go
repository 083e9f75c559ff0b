// riparto-export writes the distribution of one fiscal year to the
// configured export backend and exits.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"riparto/internal/backend"
	"riparto/internal/cli"
	applog "riparto/internal/log"
	"riparto/internal/services"
)

func main() {
	cli.LoadEnvFile()

	year := flag.Int("year", time.Now().Year(), "fiscal year to export")
	flag.Parse()

	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentSheets)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	exporter, err := backend.NewExporter(ctx, backend.ConfigFromApp(cfg))
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err)
		os.Exit(1)
	}
	if exporter == nil {
		logger.Error("No export backend configured; set GOOGLE_SPREADSHEET_ID or EXPORT_BACKEND")
		os.Exit(1)
	}

	dist := services.NewDistributionService(repo, nil, nil, exporter)

	ref, err := dist.ExportYear(ctx, *year)
	if err != nil {
		logger.Error("Export failed", "fiscal_year", *year, "error", err)
		os.Exit(1)
	}

	logger.Info("Export completed", "fiscal_year", *year, "sheets_ref", ref)
}
