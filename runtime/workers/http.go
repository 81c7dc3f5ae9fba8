package workers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// HTTPWorker serves handler until the context is cancelled.
// Request contexts derive from the worker context, so long-lived streams end with it.
type HTTPWorker struct {
	log     *slog.Logger
	address string
	handler http.Handler
}

func NewHTTPWorker(log *slog.Logger, address string, handler http.Handler) *HTTPWorker {
	return &HTTPWorker{log: log, address: address, handler: handler}
}

func (w *HTTPWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	return w.Serve(ctx, listener)
}

func (w *HTTPWorker) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	w.log.Info("HTTP server stopped")
	return ctx.Err()
}
