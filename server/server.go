// Package server exposes the ticker table and the chat store over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"kimp-board/contract"
	"kimp-board/domain"
	"kimp-board/errors"
	"kimp-board/observability"
	"kimp-board/render"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

//go:embed templates/board.html
var templatesFS embed.FS

// ChatStore is the chat side the HTTP surface needs.
type ChatStore interface {
	contract.MessageChannel
	History(ctx context.Context, after uint64, limit int) ([]domain.ChatMessage, error)
	Search(ctx context.Context, query string, limit int) ([]domain.ChatMessage, error)
}

type Server struct {
	log             *slog.Logger
	board           *render.Board
	chat            ChatStore
	monitoring      *observability.MonitoringManager
	refreshInterval time.Duration
	writeTimeout    time.Duration
	page            *template.Template
	upgrader        websocket.Upgrader
}

type PageData struct {
	RefreshSeconds int
	Rows           []render.Row
	UpdatedAt      time.Time
}

func NewServer(
	log *slog.Logger,
	board *render.Board,
	chat ChatStore,
	monitoring *observability.MonitoringManager,
	refreshInterval time.Duration,
	connectionBufferSize int,
) *Server {
	return &Server{
		log:             log,
		board:           board,
		chat:            chat,
		monitoring:      monitoring,
		refreshInterval: refreshInterval,
		writeTimeout:    5 * time.Second,
		page:            template.Must(template.ParseFS(templatesFS, "templates/board.html")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  connectionBufferSize,
			WriteBufferSize: connectionBufferSize,
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/coins", s.handleCoins)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/chat/messages", s.handleAppend)
	mux.HandleFunc("GET /api/chat/messages", s.handleHistory)
	mux.HandleFunc("GET /api/chat/search", s.handleSearch)
	mux.HandleFunc("GET /ws/chat", s.handleStream)
	return mux
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.board.Snapshot()
	data := PageData{
		RefreshSeconds: max(1, int(math.Ceil(s.refreshInterval.Seconds()))),
		Rows:           snapshot.Rows,
		UpdatedAt:      snapshot.UpdatedAt,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("Unable to render board page", "error", err)
	}
}

func (s *Server) handleCoins(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitoring.GetLatest())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Debug("Unable to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
