package sheets

import (
	"context"

	"riparto/internal/calculator"
	"riparto/internal/core"
)

// DistributionExporter writes a computed yearly distribution to an external
// spreadsheet (or captures it in memory for tests).
type DistributionExporter interface {
	// ExportDistribution writes one row per unit and returns a reference to
	// the written range.
	ExportDistribution(ctx context.Context, year int, results map[string]*calculator.UnitResult, units []core.Unit) (ref string, err error)
}
