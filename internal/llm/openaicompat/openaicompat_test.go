package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebridge/internal/llm"
)

func sseDelta(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": text}}},
	})
	return fmt.Sprintf("data: %s\n\n", payload)
}

func TestStreamReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseDelta("How "))
		_, _ = fmt.Fprint(w, sseDelta("are "))
		_, _ = fmt.Fprint(w, sseDelta("you?"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewGroq("gsk-test", "llama-3.1-8b-instant")
	client.baseURL = server.URL

	history := []llm.Message{
		{Role: llm.RoleSystem, Text: llm.PersonaPrompt},
		{Role: llm.RoleUser, Text: "Hello"},
	}
	events, err := client.StreamReply(context.Background(), history)
	require.NoError(t, err)

	var got strings.Builder
	for ev := range events {
		require.NoError(t, ev.Err)
		got.WriteString(ev.Text)
	}
	assert.Equal(t, "How are you?", got.String())
}

func TestStreamReplyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewDeepSeek("bad-key", "deepseek-chat")
	client.baseURL = server.URL

	_, err := client.StreamReply(context.Background(), []llm.Message{{Role: llm.RoleUser, Text: "Hello"}})
	assert.Error(t, err)
}

func TestStreamReplyCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseDelta("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewGroq("gsk-test", "llama-3.1-8b-instant")
	client.baseURL = server.URL

	events, err := client.StreamReply(ctx, []llm.Message{{Role: llm.RoleUser, Text: "Hello"}})
	require.NoError(t, err)

	// Take the first fragment, then cancel; the channel must close.
	ev := <-events
	assert.Equal(t, "partial", ev.Text)
	cancel()
	for range events {
	}
}
