package server

import (
	"context"
	"encoding/json"
	"fmt"
	"kimp-board/domain"
	"kimp-board/errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const maxRequestBytes = 64 << 10

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var out domain.OutgoingMessage
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&out); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err))
		return
	}
	stored, err := s.chat.Append(r.Context(), out)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	after, limit, err := paging(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.chat.History(r.Context(), after, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, limit, err := paging(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.chat.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func paging(r *http.Request) (uint64, int, error) {
	query := r.URL.Query()
	var (
		after uint64
		limit int
		err   error
	)
	if raw := query.Get("after"); raw != "" {
		if after, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("%w: after=%q", errors.ErrInvalidMessage, raw)
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit=%q", errors.ErrInvalidMessage, raw)
		}
	}
	return after, limit, nil
}

// handleStream pushes every message with Seq > after as a JSON frame, history first.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	after, _, err := paging(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is only needed to notice the peer going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sub, err := s.chat.Subscribe(ctx, after, func(msg domain.ChatMessage) {
		if ctx.Err() != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug("Chat stream write failed", "seq", msg.Seq, "error", err)
			cancel()
		}
	})
	if err != nil {
		s.log.Warn("Chat stream subscription failed", "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}
	s.log.Debug("Chat stream opened", "remote", r.RemoteAddr, "after", after)

	<-ctx.Done()
	sub.Unsubscribe()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.log.Debug("Chat stream closed", "remote", r.RemoteAddr)
}
