package workers

import (
	"context"
	"kimp-board/observability"
	"log/slog"
	"time"
)

// ReporterWorker logs a summary of the pipeline counters on every interval.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.MonitoringManager, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, interval: interval}
}

// Run starts the reporting loop until context cancellation
func (w *ReporterWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(startTime)
			return ctx.Err()
		case <-ticker.C:
			w.report(startTime)
		}
	}
}

func (w *ReporterWorker) report(startTime time.Time) {
	stats := w.monitoring.GetLatest()
	w.log.Info("Board stats",
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"cycles_ok", stats.CyclesOK,
		"cycles_failed", stats.CyclesFailed,
		"cycles_skipped", stats.CyclesSkipped,
		"messages", stats.MessagesAppended,
		"append_failures", stats.AppendFailures,
		"subscribers", stats.Subscribers,
		"restarts", stats.WorkerRestarts,
		"rss_mb", stats.RssBytes/1024/1024,
		"goroutines", stats.NumGoroutine,
	)
}
