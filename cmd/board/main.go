package main

import (
	"context"
	"fmt"
	"kimp-board/chat"
	"kimp-board/contract"
	"kimp-board/domain"
	"kimp-board/internal"
	"kimp-board/moderation"
	"kimp-board/observability"
	"kimp-board/render"
	"kimp-board/repositories"
	"kimp-board/runtime"
	"kimp-board/runtime/workers"
	"kimp-board/server"
	"kimp-board/ticker"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Board terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, blocks until a shutdown signal, then releases
// resources in reverse order through the deferred calls.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	catalog, err := domain.LoadCatalog(config.CoinCatalogPath)
	if err != nil {
		return exitConfig, fmt.Errorf("coin catalog: %w", err)
	}
	markets := config.MarketIDs(catalog.Markets())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = messageRepository.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Chat
	moderator, err := moderation.NewModerator(internal.SplitList(config.CensoredWords), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation: %w", err)
	}
	monitoring := observability.NewMonitoringManager(logger)
	channel := chat.NewLocalChannel(
		logger, messageRepository, runtime.NewRegistry(), monitoring, config.MaxContentLength,
		chat.WithSearchIndex(repositories.NewSearchIndex(blugeWriter, logger)),
		chat.WithModerator(&moderator),
		chat.WithLimitMessages(config.LimitMessages),
	)

	// 4. Ticker pipeline
	formatter := render.NewFormatter(config.Locale)
	board := render.NewBoard(formatter)
	renderers := render.Multi{board}
	if config.Terminal() {
		renderers = append(renderers, render.NewTerminal(os.Stdout, formatter, config.TerminalColours, true))
	}
	fetcher := ticker.NewFetcher(logger, &http.Client{Timeout: config.HTTPTimeout}, config.TickerBaseURL, catalog)

	// 5. Supervision
	srv := server.NewServer(logger, board, channel, monitoring, config.RefreshInterval, config.ConnectionBufferSize)
	workerList := []contract.Worker{
		workers.NewRefreshWorker(logger, fetcher, renderers, monitoring, markets, config.RefreshInterval),
		workers.NewHTTPWorker(logger, config.Address(), srv.Handler()),
		workers.NewReporterWorker(logger, monitoring, config.MetricInterval),
	}
	sup := workers.NewSupervisor(logger, monitoring, config.RestartInterval)
	sup.Add(workerList...)

	logger.Info("Starting board", "markets", markets, "address", config.Address())
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
