//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"kimp-board/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is only used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// TickerFetcher returns the display rows of one refresh cycle.
// A failed cycle yields an empty slice, never a partial one.
type TickerFetcher interface {
	Fetch(ctx context.Context, marketIDs []string) []domain.DisplayCoin
}

// TableRenderer replaces the whole table body with one row per coin.
type TableRenderer interface {
	Render(coins []domain.DisplayCoin)
}

type MessageHandler func(msg domain.ChatMessage)

type Subscription interface {
	Unsubscribe()
}

// MessageChannel is the ordered append-only chat stream.
// Subscribe delivers every message with Seq > after exactly once, in Seq order,
// history first then live.
type MessageChannel interface {
	Append(ctx context.Context, msg domain.OutgoingMessage) (domain.ChatMessage, error)
	Subscribe(ctx context.Context, after uint64, handler MessageHandler) (Subscription, error)
}

// MessageSink receives live messages pushed by the channel.
// Deliver must not block the caller.
type MessageSink interface {
	Deliver(msg domain.ChatMessage)
}

type IRegistry interface {
	Subscribe(subscriberID string, sink MessageSink)
	Unsubscribe(subscriberID string)
	Sinks() []MessageSink
	Len() int
}
