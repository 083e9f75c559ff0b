// Package services orchestrates the distribution engine across storage,
// cache, AMQP and the sheets exporter.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"riparto/internal/cache"
	"riparto/internal/calculator"
	"riparto/internal/core"
	applog "riparto/internal/log"
	"riparto/internal/sheets"
	"riparto/internal/storage"
)

// DataStore is the slice of the repository the distribution service needs.
type DataStore interface {
	ListUnits(ctx context.Context) ([]core.Unit, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListTables(ctx context.Context) ([]core.MillesimalTable, error)
	ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error)
	ListTransactionYears(ctx context.Context) ([]int, error)
	ListWaterMeters(ctx context.Context) ([]core.WaterMeter, error)
	ListWaterReadingsByYear(ctx context.Context, year int) ([]core.WaterReading, error)
	SaveSnapshot(ctx context.Context, year int, payload []byte) (string, error)
	LatestSnapshot(ctx context.Context, year int) (*storage.Snapshot, error)
}

// EventPublisher publishes recompute requests and computed events. Nil is
// allowed: the service then computes synchronously.
type EventPublisher interface {
	PublishRecomputeRequest(ctx context.Context, year int, reason string) error
	PublishDistributionComputed(ctx context.Context, year int, snapshotID string) error
}

// DistributionService computes, memoizes and distributes yearly statements.
type DistributionService struct {
	store     DataStore
	cache     cache.Cache[map[string]*calculator.UnitResult]
	publisher EventPublisher
	exporter  sheets.DistributionExporter
}

func NewDistributionService(
	store DataStore,
	resultCache cache.Cache[map[string]*calculator.UnitResult],
	publisher EventPublisher,
	exporter sheets.DistributionExporter,
) *DistributionService {
	return &DistributionService{
		store:     store,
		cache:     resultCache,
		publisher: publisher,
		exporter:  exporter,
	}
}

func cacheKey(year int) string {
	return strconv.Itoa(year)
}

// GetDistribution returns the distribution for a fiscal year, serving from
// cache when possible.
func (s *DistributionService) GetDistribution(ctx context.Context, year int) (map[string]*calculator.UnitResult, error) {
	if s.cache != nil {
		if results, ok := s.cache.Get(cacheKey(year)); ok {
			slog.DebugContext(ctx, "Distribution served from cache", applog.FieldYear, year)
			return results, nil
		}
	}
	return s.ComputeDistribution(ctx, year)
}

// ComputeDistribution loads the year's data, runs the engine, caches the
// result, persists a snapshot and announces it.
func (s *DistributionService) ComputeDistribution(ctx context.Context, year int) (map[string]*calculator.UnitResult, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load millesimal tables: %w", err)
	}
	txs, err := s.store.ListTransactionsByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	readings, err := s.store.ListWaterReadingsByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load water readings: %w", err)
	}
	meters, err := s.store.ListWaterMeters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load water meters: %w", err)
	}

	results := calculator.GenerateCondoDistribution(txs, categories, units, tables, readings, meters)

	if s.cache != nil {
		s.cache.Set(cacheKey(year), results)
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal distribution: %w", err)
	}
	snapshotID, err := s.store.SaveSnapshot(ctx, year, payload)
	if err != nil {
		// The computation itself succeeded; callers still get results.
		slog.ErrorContext(ctx, "Failed to persist distribution snapshot",
			applog.FieldYear, year, "error", err)
		return results, nil
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDistributionComputed(ctx, year, snapshotID); err != nil {
			slog.WarnContext(ctx, "Failed to publish computed event",
				applog.FieldYear, year, applog.FieldSnapshotID, snapshotID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Distribution computed",
		applog.FieldYear, year,
		applog.FieldUnitCount, len(units),
		"transaction_count", len(txs),
		applog.FieldSnapshotID, snapshotID)

	return results, nil
}

// RequestRecompute invalidates the year's cache entry and hands the work to
// the worker via AMQP. Without a publisher it recomputes in-process.
func (s *DistributionService) RequestRecompute(ctx context.Context, year int, reason string) error {
	s.InvalidateYear(year)

	if s.publisher == nil {
		_, err := s.ComputeDistribution(ctx, year)
		return err
	}

	if err := s.publisher.PublishRecomputeRequest(ctx, year, reason); err != nil {
		slog.WarnContext(ctx, "Recompute request not published, computing in-process",
			applog.FieldYear, year, "error", err)
		_, cerr := s.ComputeDistribution(ctx, year)
		return cerr
	}
	return nil
}

// RecomputeYears recomputes several fiscal years concurrently.
func (s *DistributionService) RecomputeYears(ctx context.Context, years []int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, year := range years {
		year := year
		g.Go(func() error {
			s.InvalidateYear(year)
			if _, err := s.ComputeDistribution(ctx, year); err != nil {
				return fmt.Errorf("recompute year %d: %w", year, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// AllYears lists every fiscal year present in the ledger.
func (s *DistributionService) AllYears(ctx context.Context) ([]int, error) {
	return s.store.ListTransactionYears(ctx)
}

// ExportYear writes the year's distribution to the configured exporter and
// returns the written range reference.
func (s *DistributionService) ExportYear(ctx context.Context, year int) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("no distribution exporter configured")
	}

	results, err := s.GetDistribution(ctx, year)
	if err != nil {
		return "", err
	}
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return "", fmt.Errorf("load units: %w", err)
	}

	ref, err := s.exporter.ExportDistribution(ctx, year, results, units)
	if err != nil {
		return "", fmt.Errorf("export distribution: %w", err)
	}

	slog.InfoContext(ctx, "Distribution exported", applog.FieldYear, year, applog.FieldSheetsRef, ref)
	return ref, nil
}

// LatestSnapshot returns the most recent persisted distribution for a year.
func (s *DistributionService) LatestSnapshot(ctx context.Context, year int) (*storage.Snapshot, error) {
	return s.store.LatestSnapshot(ctx, year)
}

// InvalidateYear drops one year from the result cache.
func (s *DistributionService) InvalidateYear(year int) {
	if s.cache != nil {
		s.cache.Delete(cacheKey(year))
	}
}

// InvalidateAll drops the whole result cache. Registry changes (units,
// tables, categories) affect every year.
func (s *DistributionService) InvalidateAll() {
	if s.cache != nil {
		s.cache.Flush()
	}
}
