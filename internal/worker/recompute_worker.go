// Package worker consumes recompute requests from AMQP and refreshes the
// persisted distribution snapshots.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"riparto/internal/amqp"
	"riparto/internal/calculator"
	applog "riparto/internal/log"
)

// Recomputer is the slice of the distribution service the worker needs.
type Recomputer interface {
	ComputeDistribution(ctx context.Context, year int) (map[string]*calculator.UnitResult, error)
	RecomputeYears(ctx context.Context, years []int) error
	AllYears(ctx context.Context) ([]int, error)
	InvalidateYear(year int)
}

// RecomputeWorker turns queued recompute requests into fresh snapshots.
type RecomputeWorker struct {
	service Recomputer
	timeout time.Duration
}

func NewRecomputeWorker(service Recomputer, timeout time.Duration) *RecomputeWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RecomputeWorker{service: service, timeout: timeout}
}

// HandleRecomputeRequest processes a single recompute request from AMQP.
// Returning an error makes the consumer requeue the message.
func (w *RecomputeWorker) HandleRecomputeRequest(ctx context.Context, msg *amqp.RecomputeRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	slog.InfoContext(ctx, "Recomputing distribution",
		applog.FieldYear, msg.FiscalYear,
		"reason", msg.Reason)

	w.service.InvalidateYear(msg.FiscalYear)

	results, err := w.service.ComputeDistribution(ctx, msg.FiscalYear)
	if err != nil {
		return fmt.Errorf("compute distribution for %d: %w", msg.FiscalYear, err)
	}

	slog.InfoContext(ctx, "Distribution recomputed",
		applog.FieldYear, msg.FiscalYear,
		applog.FieldUnitCount, len(results))

	return nil
}

// StartupRecompute refreshes every year found in the ledger. Run at worker
// startup to recover from requests lost while the worker was down.
func (w *RecomputeWorker) StartupRecompute(ctx context.Context) error {
	years, err := w.service.AllYears(ctx)
	if err != nil {
		return fmt.Errorf("list fiscal years: %w", err)
	}
	if len(years) == 0 {
		slog.InfoContext(ctx, "No fiscal years to recompute on startup")
		return nil
	}

	slog.InfoContext(ctx, "Recomputing all fiscal years on startup", "years", years)
	if err := w.service.RecomputeYears(ctx, years); err != nil {
		return fmt.Errorf("startup recompute: %w", err)
	}

	slog.InfoContext(ctx, "Startup recompute completed", "years", len(years))
	return nil
}
