package workers

import (
	"context"
	"kimp-board/contract"
	"kimp-board/observability"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RefreshWorker drives fetch -> render on a fixed period.
// One cycle runs immediately, then one per tick. At most one cycle is in flight:
// a tick arriving while the previous cycle is still fetching is skipped.
type RefreshWorker struct {
	log        *slog.Logger
	fetcher    contract.TickerFetcher
	renderer   contract.TableRenderer
	monitoring *observability.MonitoringManager
	markets    []string
	interval   time.Duration
	inFlight   atomic.Bool
	wg         sync.WaitGroup
}

func NewRefreshWorker(
	log *slog.Logger,
	fetcher contract.TickerFetcher,
	renderer contract.TableRenderer,
	monitoring *observability.MonitoringManager,
	markets []string,
	interval time.Duration,
) *RefreshWorker {
	return &RefreshWorker{
		log:        log,
		fetcher:    fetcher,
		renderer:   renderer,
		monitoring: monitoring,
		markets:    markets,
		interval:   interval,
	}
}

func (w *RefreshWorker) Run(ctx context.Context) error {
	w.log.Info("Starting ticker refresh worker", "markets", w.markets, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	// The in-flight cycle must end before the worker returns
	defer w.wg.Wait()

	w.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.trigger(ctx)
		}
	}
}

func (w *RefreshWorker) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		w.log.Debug("Previous refresh cycle still running, skipping tick")
		w.monitoring.IncrCyclesSkipped()
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.inFlight.Store(false)
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Refresh cycle panic recovered", "panic", r)
			}
		}()
		w.Cycle(ctx)
	}()
}

// Cycle fetches once and renders the result.
// An empty result leaves the previous table untouched.
// Every cycle is recorded once, a panicking one as failed.
func (w *RefreshWorker) Cycle(ctx context.Context) bool {
	start := time.Now()
	rows := 0
	defer func() { w.monitoring.RecordCycle(rows, time.Since(start)) }()

	coins := w.fetcher.Fetch(ctx, w.markets)
	if len(coins) == 0 {
		w.log.Debug("Empty refresh cycle, keeping previous table")
		return false
	}
	w.renderer.Render(coins)
	rows = len(coins)
	return true
}
