package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"carebridge/internal/llm"
	"carebridge/internal/telemetry"
)

// ErrEmptyMessage is returned for a blank chat message before anything is
// sent upstream.
var ErrEmptyMessage = errors.New("message is required")

// ChatService relays a user message to the configured chat provider and
// forwards the fragment stream to the HTTP layer in order: no buffering,
// no reordering, no retries. Failures are metered whether they arrive as a
// start error or as an error event mid-stream.
type ChatService struct {
	chat    llm.ChatStreamer
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewChatService(chat llm.ChatStreamer, metrics *telemetry.Metrics, logger *slog.Logger) *ChatService {
	return &ChatService{chat: chat, metrics: metrics, logger: logger}
}

// StreamReply wraps the message in the fixed persona instruction and starts
// the upstream stream. The caller owns draining the returned channel.
func (s *ChatService) StreamReply(ctx context.Context, message string) (<-chan llm.StreamEvent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	s.metrics.ChatRequests.Add(ctx, 1)

	history := []llm.Message{
		{Role: llm.RoleSystem, Text: llm.PersonaPrompt},
		{Role: llm.RoleUser, Text: message},
	}

	events, err := s.chat.StreamReply(ctx, history)
	if err != nil {
		s.metrics.ChatFailures.Add(ctx, 1)
		s.logger.Error("chat stream failed to start", "error", err)
		return nil, err
	}

	// Adapters that only learn of an upstream failure mid-call report it as
	// an error event; count those the same as start failures.
	out := make(chan llm.StreamEvent)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Err != nil {
				s.metrics.ChatFailures.Add(ctx, 1)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
