// Package backend selects the distribution export target from
// configuration.
package backend

import (
	"riparto/internal/config"
)

// Type identifies an export backend.
type Type string

const (
	// SheetsBackend exports to the configured Google Sheets spreadsheet.
	SheetsBackend Type = "sheets"
	// MemoryBackend keeps exports in memory; used for development and tests.
	MemoryBackend Type = "memory"
	// DisabledBackend turns the export surface off entirely.
	DisabledBackend Type = "none"
)

func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, MemoryBackend, DisabledBackend:
		return true
	}
	return false
}

// Config holds what the factory needs to build an exporter.
type Config struct {
	Type          Type
	SpreadsheetID string
}

// ConfigFromApp resolves the "auto" setting: sheets when a spreadsheet is
// configured, disabled otherwise.
func ConfigFromApp(cfg *config.Config) Config {
	t := Type(cfg.ExportBackend)
	if cfg.ExportBackend == "auto" {
		if cfg.GoogleSpreadsheetID != "" {
			t = SheetsBackend
		} else {
			t = DisabledBackend
		}
	}
	return Config{
		Type:          t,
		SpreadsheetID: cfg.GoogleSpreadsheetID,
	}
}
