package chat

import (
	"context"
	"fmt"
	"kimp-board/contract"
	"kimp-board/domain"
	"kimp-board/errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// Controller binds the input and the message log to a MessageChannel.
type Controller struct {
	log      *slog.Logger
	channel  contract.MessageChannel
	input    Input
	view     MessageLog
	nickname string
	now      func() time.Time

	mu    sync.Mutex
	state State
	sub   contract.Subscription
}

func NewController(
	log *slog.Logger,
	channel contract.MessageChannel,
	input Input,
	view MessageLog,
	nickname string,
) *Controller {
	if strings.TrimSpace(nickname) == "" {
		nickname = domain.AnonymousNickname
	}
	return &Controller{
		log:      log,
		channel:  channel,
		input:    input,
		view:     view,
		nickname: nickname,
		now:      time.Now,
	}
}

// Start subscribes to the whole stream, history first.
func (c *Controller) Start(ctx context.Context) error {
	sub, err := c.channel.Subscribe(ctx, 0, c.Deliver)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// Submit sends the trimmed input. Blank input is a no-op returning ErrEmptyMessage.
// The input is cleared only once the append succeeded.
func (c *Controller) Submit(ctx context.Context) error {
	text := strings.TrimSpace(c.input.Text())
	if text == "" {
		return errors.ErrEmptyMessage
	}

	c.setState(Sending)
	defer c.setState(Idle)

	_, err := c.channel.Append(ctx, domain.OutgoingMessage{
		Nickname:  c.nickname,
		Message:   text,
		Timestamp: domain.FormatTimestamp(c.now()),
	})
	if err != nil {
		c.log.Warn("Message not sent", "error", err)
		c.view.Warn(fmt.Sprintf("메시지를 보내지 못했습니다: %v", err))
		c.view.ScrollToBottom()
		return err
	}
	c.input.Clear()
	return nil
}

// Deliver renders one message and keeps the log scrolled to the bottom.
func (c *Controller) Deliver(msg domain.ChatMessage) {
	c.view.AppendLine(msg.Line())
	c.view.ScrollToBottom()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
