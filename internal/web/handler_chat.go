package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"carebridge/internal/domain"
)

// genericChatError deliberately hides upstream detail from the caller.
const genericChatError = "An error occurred while processing your request."

// handleChatWebhook relays one chat message and re-streams the reply as
// text/plain, one fragment at a time, flushing after each so the client sees
// tokens as the model emits them.
func (s *Server) handleChatWebhook(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", s.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", s.logger)
		return
	}

	events, err := s.chat.StreamReply(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, genericChatError, s.logger)
		return
	}

	// Peek at the first event before committing to a 200: adapters that
	// only learn of an upstream failure mid-call report it as the first
	// event, and at that point a clean 500 is still possible.
	first, ok := <-events
	if ok && first.Err != nil {
		s.logger.Error("chat stream failed", "session_id", req.SessionID, "error", first.Err)
		writeError(w, http.StatusInternalServerError, genericChatError, s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, canFlush := w.(http.Flusher)

	writeFragment := func(text string) bool {
		if _, err := w.Write([]byte(text)); err != nil {
			return false
		}
		if canFlush {
			flusher.Flush()
		}
		return true
	}

	if ok && !writeFragment(first.Text) {
		return
	}

	for ev := range events {
		if r.Context().Err() != nil {
			return
		}
		if ev.Err != nil {
			// Headers are already out; all we can do is log and stop.
			s.logger.Error("chat stream aborted", "session_id", req.SessionID, "error", ev.Err)
			return
		}
		if !writeFragment(ev.Text) {
			return
		}
	}
}
