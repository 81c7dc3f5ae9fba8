package main

import (
	"bufio"
	"context"
	"fmt"
	"kimp-board/chat"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2

	quitCommand = "/quit"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to a board server and turns every stdin line into a chat message.
func run() (int, error) {
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if !config.Colours {
		color.Disable()
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel := chat.NewRemoteChannel(logger, config.ServerAddr, &http.Client{Timeout: config.RequestTimeout}, config.ReconnectDelay)
	input := &chat.InputBuffer{}
	view := chat.NewLogView(os.Stdout, config.LogHeight, config.Colours)
	controller := chat.NewController(logger, channel, input, view, config.Nickname)

	if err := controller.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("unable to join the chat at %s: %w", config.ServerAddr, err)
	}
	defer controller.Close()
	color.Cyan.Printf("Connected to %s as %s, type %s to leave\n", config.ServerAddr, config.Nickname, quitCommand)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == quitCommand {
				return exitOK, nil
			}
			input.SetText(line)
			// Failures are already shown in the log as a warning
			_ = controller.Submit(ctx)
		}
	}
}
