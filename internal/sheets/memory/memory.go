// Package memory is an in-process DistributionExporter used in tests and
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"riparto/internal/calculator"
	"riparto/internal/core"
)

type Export struct {
	Year    int
	Results map[string]*calculator.UnitResult
	Units   []core.Unit
}

type Store struct {
	mu      sync.Mutex
	exports []Export
}

func New() *Store {
	return &Store{}
}

// ExportDistribution records the export and returns a synthetic reference.
func (s *Store) ExportDistribution(_ context.Context, year int, results map[string]*calculator.UnitResult, units []core.Unit) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, Export{Year: year, Results: results, Units: units})
	return fmt.Sprintf("mem:%d:%d", year, len(s.exports)), nil
}

// Exports returns a copy of everything exported so far.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}
