package backend

import (
	"context"
	"fmt"
	"log/slog"

	"riparto/internal/sheets"
	gsheet "riparto/internal/sheets/google"
	"riparto/internal/sheets/memory"
)

// NewExporter builds the distribution exporter for the given backend type.
// A nil exporter (with nil error) means exports are disabled.
func NewExporter(ctx context.Context, cfg Config) (sheets.DistributionExporter, error) {
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid export backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SheetsBackend:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets exporter: %w", err)
		}
		slog.Info("Initialized Google Sheets export backend", "spreadsheet_id", cfg.SpreadsheetID)
		return cli, nil
	case MemoryBackend:
		slog.Info("Initialized in-memory export backend")
		return memory.New(), nil
	default:
		slog.Info("Distribution export disabled")
		return nil, nil
	}
}
