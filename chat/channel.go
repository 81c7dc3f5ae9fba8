// Package chat holds the message channel implementations and the chat controller.
package chat

import (
	"context"
	"fmt"
	"kimp-board/contract"
	"kimp-board/domain"
	"kimp-board/errors"
	"kimp-board/moderation"
	"kimp-board/observability"
	"kimp-board/repositories"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const defaultHistoryLimit = 100

// LocalChannel is the authoritative message channel living next to the store.
// Appends are serialized: store, then push to every registered sink, under one lock.
// Subscribe reads history and registers its sink under the same lock,
// so a subscriber never misses nor duplicates a message.
type LocalChannel struct {
	mu               sync.Mutex
	log              *slog.Logger
	repository       repositories.IMessageRepository
	index            repositories.ISearchIndex
	registry         contract.IRegistry
	moderator        *moderation.Moderator
	monitoring       *observability.MonitoringManager
	maxContentLength int
	limitMessages    *int
	now              func() time.Time
}

type LocalChannelOption func(*LocalChannel)

// WithSearchIndex indexes every appended message for full-text search.
func WithSearchIndex(index repositories.ISearchIndex) LocalChannelOption {
	return func(c *LocalChannel) { c.index = index }
}

// WithModerator censors and tags the language of every appended message.
func WithModerator(moderator *moderation.Moderator) LocalChannelOption {
	return func(c *LocalChannel) { c.moderator = moderator }
}

// WithLimitMessages caps the history replayed to a subscriber starting from the beginning.
func WithLimitMessages(limit *int) LocalChannelOption {
	return func(c *LocalChannel) { c.limitMessages = limit }
}

func WithClock(now func() time.Time) LocalChannelOption {
	return func(c *LocalChannel) { c.now = now }
}

func NewLocalChannel(
	log *slog.Logger,
	repository repositories.IMessageRepository,
	registry contract.IRegistry,
	monitoring *observability.MonitoringManager,
	maxContentLength int,
	opts ...LocalChannelOption,
) *LocalChannel {
	c := &LocalChannel{
		log:              log,
		repository:       repository,
		registry:         registry,
		monitoring:       monitoring,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LocalChannel) Append(ctx context.Context, out domain.OutgoingMessage) (domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatMessage{}, err
	}
	if err := out.Validate(c.maxContentLength); err != nil {
		return domain.ChatMessage{}, err
	}

	msg := domain.ChatMessage{
		ID:        uuid.New(),
		Nickname:  out.Nickname,
		Message:   out.Message,
		Timestamp: out.Timestamp,
		CreatedAt: c.now().UTC(),
	}
	if c.moderator != nil {
		var censored []string
		msg.Message, censored = c.moderator.Censor(out.Message)
		msg.Lang = c.moderator.Detect(out.Message)
		if len(censored) > 0 {
			c.log.Debug("Message censored", "nickname", out.Nickname, "words", censored)
		}
	}

	stored, err := c.store(msg)
	if err != nil {
		c.monitoring.IncrAppendFailures()
		c.log.Error("Unable to append message", "error", err)
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", errors.ErrAppendFailed, err)
	}
	c.monitoring.IncrMessagesAppended()

	if c.index != nil {
		if err := c.index.Index(stored); err != nil {
			c.log.Warn("Unable to index message", "seq", stored.Seq, "error", err)
		}
	}
	return stored, nil
}

func (c *LocalChannel) store(msg domain.ChatMessage) (domain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.repository.StoreMessage(msg)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	for _, sink := range c.registry.Sinks() {
		sink.Deliver(stored)
	}
	return stored, nil
}

func (c *LocalChannel) Subscribe(ctx context.Context, after uint64, handler contract.MessageHandler) (contract.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSubscriptionClosed, err)
	}
	id := uuid.NewString()
	sub := newSubscription(id, c.log, handler, after)

	sub.onStop = func() {
		c.registry.Unsubscribe(id)
		c.monitoring.AddSubscribers(-1)
		c.log.Debug("Subscriber left", "subscriber", id)
	}
	if err := c.register(sub, after); err != nil {
		return nil, err
	}
	go sub.run()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (c *LocalChannel) register(sub *subscription, after uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		history []domain.ChatMessage
		err     error
	)
	if after == 0 && c.limitMessages != nil {
		history, err = c.repository.GetLatestMessages(*c.limitMessages)
	} else {
		history, err = c.repository.GetMessages(after, nil)
	}
	if err != nil {
		return fmt.Errorf("load history after %d: %w", after, err)
	}

	for _, msg := range history {
		sub.Deliver(msg)
	}
	c.registry.Subscribe(sub.id, sub)
	c.monitoring.AddSubscribers(1)
	c.log.Debug("Subscriber joined", "subscriber", sub.id, "after", after, "history", len(history))
	return nil
}

// History returns at most limit messages with Seq > after, ascending.
func (c *LocalChannel) History(_ context.Context, after uint64, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = lo.FromPtrOr(c.limitMessages, defaultHistoryLimit)
	}
	messages, err := c.repository.GetMessages(after, &limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		return []domain.ChatMessage{}, nil
	}
	return messages, nil
}

// Search returns the messages matching query, best match first.
func (c *LocalChannel) Search(ctx context.Context, query string, limit int) ([]domain.ChatMessage, error) {
	if c.index == nil || query == "" {
		return []domain.ChatMessage{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	seqs, err := c.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(seqs))
	for _, seq := range seqs {
		msg, found, err := c.repository.GetMessage(seq)
		if err != nil {
			return nil, err
		}
		if found {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}
