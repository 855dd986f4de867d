package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/chat"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/config"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/memory"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/observability"
)

const apiVersion = "1.0"

// ChatService is the use-case boundary the transport depends on.
type ChatService interface {
	HandleTurn(ctx context.Context, userID, question string, clearHistory bool) (chat.TurnResult, error)
	History(ctx context.Context, userID string) ([]memory.TurnRecord, error)
	Clear(ctx context.Context, userID string) (int64, error)
}

type Server struct {
	cfg      config.Config
	chat     ChatService
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chatService ChatService, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		chat:    chatService,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin or an explicitly configured one.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware(s.corsOrigins()))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/chat", s.handleChat)
	r.Get("/chat/ws", s.handleChatWS)
	r.Get("/history/{user_id}", s.handleGetHistory)
	r.Delete("/history/{user_id}", s.handleClearHistory)

	return r
}

func (s *Server) corsOrigins() []string {
	if s.cfg.AllowAnyOrigin {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to Study Bot API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"/chat":              "POST - Chat with the study bot",
			"/chat/ws":           "GET - WebSocket chat",
			"/history/{user_id}": "GET - Get user chat history, DELETE - Clear it",
			"/metrics":           "GET - Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type chatRequest struct {
	UserID       string `json:"user_id"`
	Question     string `json:"question"`
	ClearHistory bool   `json:"clear_history"`
}

type chatResponse struct {
	UserID        string `json:"user_id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	HistoryLength int    `json:"history_length"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.chat.HandleTurn(r.Context(), req.UserID, req.Question, req.ClearHistory)
	if err != nil {
		respondDetail(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		UserID:        req.UserID,
		Question:      req.Question,
		Answer:        result.Answer,
		HistoryLength: result.ExchangeCount,
	})
}

type historyEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	limit := 10
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondDetail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	full, err := s.chat.History(r.Context(), userID)
	if err != nil {
		respondDetail(w, statusForError(err), err.Error())
		return
	}

	// The window is cut from the full transcript, limit exchanges wide, not
	// via the store's own retrieval limit. limit=0 means the whole transcript.
	window := full
	if max := limit * 2; limit > 0 && len(window) > max {
		window = window[len(window)-max:]
	}
	entries := make([]historyEntry, 0, len(window))
	for _, turn := range window {
		entries = append(entries, historyEntry{Role: turn.Role, Message: turn.Content})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":        userID,
		"history":        entries,
		"total_messages": len(full),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	count, err := s.chat.Clear(r.Context(), userID)
	if err != nil {
		respondDetail(w, statusForError(err), err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.HistoryClears.Inc()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Cleared %d messages for user %s", count, userID),
	})
}

// statusForError keeps the original coarse surfacing: every internal failure
// is a 500 with a detail string; only the added user_id validation gets 400.
func statusForError(err error) int {
	if errors.Is(err, chat.ErrMissingUserID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondDetail(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, detailResponse{Detail: message})
}
