package httpapi

import (
	"net/http"
	"time"
)

// handleChatWS serves an interactive chat session over a websocket. Frames
// carry the same request/response shapes as POST /chat, one exchange at a
// time; there is no token streaming.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.WSEvents.WithLabelValues("connected").Inc()
		defer s.metrics.WSEvents.WithLabelValues("disconnected").Inc()
	}

	conn.SetReadLimit(1 << 20)

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		result, err := s.chat.HandleTurn(r.Context(), req.UserID, req.Question, req.ClearHistory)

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err != nil {
			if writeErr := conn.WriteJSON(detailResponse{Detail: err.Error()}); writeErr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(chatResponse{
			UserID:        req.UserID,
			Question:      req.Question,
			Answer:        result.Answer,
			HistoryLength: result.ExchangeCount,
		}); err != nil {
			return
		}
	}
}
