package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"kimp-board/domain"
	"kimp-board/errors"
	"kimp-board/mocks"
	"kimp-board/moderation"
	"kimp-board/observability"
	"kimp-board/repositories"
	"kimp-board/runtime"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	channel    *LocalChannel
	registry   *runtime.Registry
	monitoring *observability.MonitoringManager
}

func newFixture(t *testing.T, opts ...LocalChannelOption) fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	t.Cleanup(func() {
		_ = writer.Close()
		_ = repository.Close()
		_ = db.Close()
	})

	moderator, err := moderation.NewModerator([]string{"scam"}, '*', log)
	req.NoError(err)

	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoringManager(log)
	opts = append([]LocalChannelOption{
		WithSearchIndex(repositories.NewSearchIndex(writer, log)),
		WithModerator(&moderator),
	}, opts...)
	channel := NewLocalChannel(log, repository, registry, monitoring, 200, opts...)
	return fixture{channel: channel, registry: registry, monitoring: monitoring}
}

func outgoing(content string) domain.OutgoingMessage {
	return domain.OutgoingMessage{
		Nickname:  domain.AnonymousNickname,
		Message:   content,
		Timestamp: domain.FormatTimestamp(time.Now()),
	}
}

// collector gathers delivered messages for assertions.
type collector struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (c *collector) handle(msg domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *collector) seqs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.messages, func(m domain.ChatMessage, _ int) uint64 { return m.Seq })
}

func (c *collector) contents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.messages, func(m domain.ChatMessage, _ int) string { return m.Message })
}

func seqRange(from, to uint64) []uint64 {
	var out []uint64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestLocalChannel_Append_Stores_And_Censors(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	// When two messages are appended
	first, err := f.channel.Append(ctx, outgoing("hello"))
	req.NoError(err)
	second, err := f.channel.Append(ctx, outgoing("this is a scam"))
	req.NoError(err)

	// Then they get increasing Seq, a server time and censored content
	req.Equal(uint64(1), first.Seq)
	req.Equal(uint64(2), second.Seq)
	req.False(first.CreatedAt.IsZero())
	req.Equal("this is a ****", second.Message)

	history, err := f.channel.History(ctx, 0, 10)
	req.NoError(err)
	req.Equal([]string{"hello", "this is a ****"}, lo.Map(history, func(m domain.ChatMessage, _ int) string { return m.Message }))
	req.Equal(uint64(2), f.monitoring.GetLatest().MessagesAppended)
}

func TestLocalChannel_Append_Rejects_Invalid_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.channel.Append(context.Background(), outgoing(""))
	req.ErrorIs(err, errors.ErrInvalidMessage)

	tooLong := outgoing(string(make([]rune, 201)))
	_, err = f.channel.Append(context.Background(), tooLong)
	req.ErrorIs(err, errors.ErrInvalidMessage)

	history, err := f.channel.History(context.Background(), 0, 10)
	req.NoError(err)
	req.Empty(history)
}

func TestLocalChannel_Append_Store_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	registry := runtime.NewRegistry()
	channel := NewLocalChannel(log, repository, registry, monitoring, 0)

	// Given a store that fails
	repository.EXPECT().StoreMessage(gomock.Any()).Return(domain.ChatMessage{}, fmt.Errorf("disk full"))

	// When appending
	_, err := channel.Append(context.Background(), outgoing("hello"))

	// Then the failure is reported and counted
	req.ErrorIs(err, errors.ErrAppendFailed)
	req.Equal(uint64(1), monitoring.GetLatest().AppendFailures)
	req.Zero(monitoring.GetLatest().MessagesAppended)
}

func TestLocalChannel_Subscribe_History_Then_Live(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	// Given three messages already stored
	for i := 0; i < 3; i++ {
		_, err := f.channel.Append(ctx, outgoing(fmt.Sprintf("old %d", i)))
		req.NoError(err)
	}

	// When subscribing from the beginning then appending two more
	c := &collector{}
	sub, err := f.channel.Subscribe(ctx, 0, c.handle)
	req.NoError(err)
	defer sub.Unsubscribe()
	for i := 0; i < 2; i++ {
		_, err := f.channel.Append(ctx, outgoing(fmt.Sprintf("new %d", i)))
		req.NoError(err)
	}

	// Then every message arrives once, in order
	req.Eventually(func() bool { return len(c.seqs()) == 5 }, time.Second, 5*time.Millisecond)
	req.Equal(seqRange(1, 5), c.seqs())
	req.Equal([]string{"old 0", "old 1", "old 2", "new 0", "new 1"}, c.contents())
}

func TestLocalChannel_Subscribe_After(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.channel.Append(ctx, outgoing(fmt.Sprintf("message %d", i)))
		req.NoError(err)
	}

	// When resuming after Seq 2
	c := &collector{}
	sub, err := f.channel.Subscribe(ctx, 2, c.handle)
	req.NoError(err)
	defer sub.Unsubscribe()

	// Then only 3 and 4 are delivered
	req.Eventually(func() bool { return len(c.seqs()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal([]uint64{3, 4}, c.seqs())
}

func TestLocalChannel_Subscribe_During_Concurrent_Appends(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	writers, perWriter := 4, 25
	total := uint64(writers * perWriter)

	// Given a subscriber present from the start
	early := &collector{}
	earlySub, err := f.channel.Subscribe(ctx, 0, early.handle)
	req.NoError(err)
	defer earlySub.Unsubscribe()

	// And writers appending concurrently
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := f.channel.Append(ctx, outgoing("tick")); err != nil {
					t.Error(err)
				}
			}
		}()
	}

	// When a second subscriber joins in the middle of it
	time.Sleep(time.Millisecond)
	late := &collector{}
	lateSub, err := f.channel.Subscribe(ctx, 0, late.handle)
	req.NoError(err)
	defer lateSub.Unsubscribe()
	wg.Wait()

	// Then both see every message exactly once and in the same Seq order
	for _, c := range []*collector{early, late} {
		req.Eventually(func() bool { return uint64(len(c.seqs())) == total }, 2*time.Second, 5*time.Millisecond)
		req.Equal(seqRange(1, total), c.seqs())
	}
	req.Equal(early.seqs(), late.seqs())
}

func TestLocalChannel_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	c := &collector{}
	sub, err := f.channel.Subscribe(ctx, 0, c.handle)
	req.NoError(err)
	req.Equal(1, f.registry.Len())
	req.Equal(int64(1), f.monitoring.GetLatest().Subscribers)

	// When unsubscribing, twice
	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = f.channel.Append(ctx, outgoing("nobody listens"))
	req.NoError(err)

	// Then the listener is gone and nothing was delivered
	req.Zero(f.registry.Len())
	req.Zero(f.monitoring.GetLatest().Subscribers)
	time.Sleep(20 * time.Millisecond)
	req.Empty(c.seqs())
}

func TestLocalChannel_Context_Cancel_Unsubscribes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.channel.Subscribe(ctx, 0, func(domain.ChatMessage) {})
	req.NoError(err)
	req.Equal(1, f.registry.Len())

	cancel()

	req.Eventually(func() bool { return f.registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLocalChannel_Subscribe_Cancelled_Context(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.channel.Subscribe(ctx, 0, func(domain.ChatMessage) {})
	req.True(stderrors.Is(err, errors.ErrSubscriptionClosed))
	req.Zero(f.registry.Len())
}

func TestLocalChannel_Handler_Panic_Does_Not_Stop_Delivery(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	c := &collector{}
	sub, err := f.channel.Subscribe(ctx, 0, func(msg domain.ChatMessage) {
		if msg.Seq == 1 {
			panic("boom")
		}
		c.handle(msg)
	})
	req.NoError(err)
	defer sub.Unsubscribe()

	for i := 0; i < 3; i++ {
		_, err := f.channel.Append(ctx, outgoing("message"))
		req.NoError(err)
	}

	req.Eventually(func() bool { return len(c.seqs()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal([]uint64{2, 3}, c.seqs())
}

func TestLocalChannel_Limit_Messages_Replays_Tail(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, WithLimitMessages(lo.ToPtr(2)))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.channel.Append(ctx, outgoing(fmt.Sprintf("message %d", i)))
		req.NoError(err)
	}

	c := &collector{}
	sub, err := f.channel.Subscribe(ctx, 0, c.handle)
	req.NoError(err)
	defer sub.Unsubscribe()

	req.Eventually(func() bool { return len(c.seqs()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal([]uint64{4, 5}, c.seqs())
}

func TestLocalChannel_Search(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	for _, content := range []string{"bitcoin breaks the record", "ethereum is flat", "another bitcoin rally"} {
		_, err := f.channel.Append(ctx, outgoing(content))
		req.NoError(err)
	}

	found, err := f.channel.Search(ctx, "bitcoin", 10)
	req.NoError(err)
	req.ElementsMatch([]uint64{1, 3}, lo.Map(found, func(m domain.ChatMessage, _ int) uint64 { return m.Seq }))

	found, err = f.channel.Search(ctx, "", 10)
	req.NoError(err)
	req.Empty(found)
}
