package workers

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHTTPWorker_Serves_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	worker := NewHTTPWorker(log, listener.Addr().String(), handler)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a running worker
	done := make(chan error, 1)
	go func() { done <- worker.Serve(ctx, listener) }()

	// Then it answers requests
	response, err := http.Get("http://" + listener.Addr().String())
	req.NoError(err)
	body, err := io.ReadAll(response.Body)
	req.NoError(err)
	_ = response.Body.Close()
	req.Equal("pong", string(body))

	// When the context is cancelled
	cancel()

	// Then it stops with the context error
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP worker did not stop")
	}
}

func TestHTTPWorker_Listen_Failure(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer busy.Close()

	worker := NewHTTPWorker(log, busy.Addr().String(), http.NotFoundHandler())

	req.Error(worker.Run(context.Background()))
}
