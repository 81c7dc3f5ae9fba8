package chat

import (
	"kimp-board/contract"
	"kimp-board/domain"
	"log/slog"
	"sync"
)

// subscription is the sink of one subscriber.
// Deliver only enqueues; a dedicated goroutine drains the queue in FIFO order,
// so a slow handler never blocks the appender.
type subscription struct {
	id      string
	log     *slog.Logger
	handler contract.MessageHandler

	mu      sync.Mutex
	queue   []domain.ChatMessage
	closed  bool
	lastSeq uint64
	notify  chan struct{}
	done    chan struct{}

	stopOnce sync.Once
	onStop   func()
}

func newSubscription(id string, log *slog.Logger, handler contract.MessageHandler, after uint64) *subscription {
	return &subscription{
		id:      id,
		log:     log,
		handler: handler,
		lastSeq: after,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *subscription) Deliver(msg domain.ChatMessage) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		batch, ok := s.next()
		if !ok {
			return
		}
		for _, msg := range batch {
			if s.isClosed() {
				return
			}
			// Seq only grows, anything else was already handled
			if msg.Seq <= s.lastSeq {
				continue
			}
			s.lastSeq = msg.Seq
			s.handle(msg)
		}
	}
}

// next blocks until messages are queued or the subscription is closed.
func (s *subscription) next() ([]domain.ChatMessage, bool) {
	s.mu.Lock()
	for len(s.queue) == 0 {
		if s.closed {
			s.mu.Unlock()
			return nil, false
		}
		s.mu.Unlock()
		<-s.notify
		s.mu.Lock()
	}
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()
	return batch, true
}

func (s *subscription) handle(msg domain.ChatMessage) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Message handler panic recovered", "subscriber", s.id, "seq", msg.Seq, "panic", r)
		}
	}()
	s.handler(msg)
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Unsubscribe stops the delivery and waits for the in-progress handler.
// It must not be called from inside the handler.
func (s *subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		if s.onStop != nil {
			s.onStop()
		}
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		select {
		case s.notify <- struct{}{}:
		default:
		}
	})
	<-s.done
}
