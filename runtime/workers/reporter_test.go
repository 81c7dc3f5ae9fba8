package workers

import (
	"bytes"
	"context"
	"kimp-board/observability"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReporterWorker_Logs_Stats(t *testing.T) {
	req := require.New(t)
	out := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(out, nil))
	monitoring := observability.NewMonitoringManager(log)
	monitoring.RecordCycle(5, time.Millisecond)
	monitoring.IncrMessagesAppended()

	// Given a reporter with a short interval
	worker := NewReporterWorker(log, monitoring, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	// When it runs until the deadline
	err := worker.Run(ctx)

	// Then it stopped with the context and logged the counters
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Contains(out.String(), "Board stats")
	req.Contains(out.String(), "cycles_ok=1")
	req.Contains(out.String(), "messages=1")
}
