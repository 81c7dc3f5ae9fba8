package chat

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"kimp-board/contract"
	"kimp-board/domain"
	"kimp-board/errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MessagesPath = "/api/chat/messages"
	StreamPath   = "/ws/chat"

	maxReconnectDelay = 10 * time.Second
)

// ErrorResponse is the JSON body of every failed chat request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RemoteChannel is a MessageChannel served by a board process over HTTP and WebSocket.
type RemoteChannel struct {
	log            *slog.Logger
	baseURL        string
	httpClient     *http.Client
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

func NewRemoteChannel(log *slog.Logger, baseURL string, httpClient *http.Client, reconnectDelay time.Duration) *RemoteChannel {
	return &RemoteChannel{
		log:            log,
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     httpClient,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
	}
}

func (r *RemoteChannel) Append(ctx context.Context, msg domain.OutgoingMessage) (domain.ChatMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+MessagesPath, bytes.NewReader(body))
	if err != nil {
		return domain.ChatMessage{}, err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := r.httpClient.Do(request)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", errors.ErrAppendFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusCreated {
		return domain.ChatMessage{}, statusError(response)
	}
	var stored domain.ChatMessage
	if err := json.NewDecoder(response.Body).Decode(&stored); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: decode response: %v", errors.ErrAppendFailed, err)
	}
	return stored, nil
}

func statusError(response *http.Response) error {
	var body ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if response.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %s", errors.ErrInvalidMessage, body.Error)
	}
	return fmt.Errorf("%w: status %d: %s", errors.ErrAppendFailed, response.StatusCode, body.Error)
}

// Subscribe opens the stream once synchronously, then keeps it alive in the background.
// Every reconnection resumes after the last Seq handed to the handler.
func (r *RemoteChannel) Subscribe(ctx context.Context, after uint64, handler contract.MessageHandler) (contract.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &remoteSubscription{cancel: cancel, done: make(chan struct{}), lastSeq: after}

	conn, err := r.dial(ctx, after)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", errors.ErrSubscriptionClosed, err)
	}
	sub.setConn(conn)

	go r.stream(ctx, sub, handler)
	go func() {
		// Unblocks the reader, whichever connection is current
		<-ctx.Done()
		if conn := sub.getConn(); conn != nil {
			_ = conn.Close()
		}
	}()
	return sub, nil
}

func (r *RemoteChannel) stream(ctx context.Context, sub *remoteSubscription, handler contract.MessageHandler) {
	defer close(sub.done)
	delay := r.reconnectDelay
	for {
		if conn := sub.getConn(); conn != nil {
			err := r.read(conn, sub, handler)
			_ = conn.Close()
			sub.setConn(nil)
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("Chat stream interrupted", "last_seq", sub.lastSeq, "error", err)
			delay = r.reconnectDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		conn, err := r.dial(ctx, sub.lastSeq)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Debug("Chat stream reconnect failed", "retry_in", delay, "error", err)
			delay = min(2*delay, maxReconnectDelay)
			continue
		}
		r.log.Info("Chat stream reconnected", "after", sub.lastSeq)
		sub.setConn(conn)
		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}
	}
}

func (r *RemoteChannel) read(conn *websocket.Conn, sub *remoteSubscription, handler contract.MessageHandler) error {
	for {
		var msg domain.ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		// A resumed stream may replay what was already handled
		if msg.Seq <= sub.lastSeq {
			continue
		}
		sub.lastSeq = msg.Seq
		r.handle(handler, msg)
	}
}

func (r *RemoteChannel) handle(handler contract.MessageHandler, msg domain.ChatMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Message handler panic recovered", "seq", msg.Seq, "panic", rec)
		}
	}()
	handler(msg)
}

func (r *RemoteChannel) dial(ctx context.Context, after uint64) (*websocket.Conn, error) {
	endpoint, err := streamURL(r.baseURL, after)
	if err != nil {
		return nil, err
	}
	conn, response, err := r.dialer.DialContext(ctx, endpoint, nil)
	if response != nil && response.Body != nil {
		_ = response.Body.Close()
	}
	if err != nil {
		if stderrors.Is(err, websocket.ErrBadHandshake) && response != nil {
			return nil, fmt.Errorf("handshake status %d", response.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

func streamURL(baseURL string, after uint64) (string, error) {
	u, err := url.Parse(baseURL + StreamPath)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"after": []string{strconv.FormatUint(after, 10)}}.Encode()
	return u.String(), nil
}

type remoteSubscription struct {
	cancel  context.CancelFunc
	done    chan struct{}
	lastSeq uint64

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *remoteSubscription) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *remoteSubscription) getConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Unsubscribe closes the stream and waits for the reader to stop.
func (s *remoteSubscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
