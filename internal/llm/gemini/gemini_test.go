package gemini

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

func sseChunk(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return fmt.Sprintf("data: %s\n\n", payload)
}

func TestStreamReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":streamGenerateContent")
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "Hello", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseChunk("Hi "))
		_, _ = fmt.Fprint(w, sseChunk("there"))
		_, _ = fmt.Fprint(w, sseChunk("!"))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-flash", "gemini-1.5-flash")
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
	assert.Equal(t, "Hi there!", got.String())
}

func TestStreamReplyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-flash", "gemini-1.5-flash")
	client.baseURL = server.URL

	_, err := client.StreamReply(context.Background(), []llm.Message{{Role: llm.RoleUser, Text: "Hello"}})
	assert.Error(t, err)
}

func TestExtractStructured(t *testing.T) {
	modelReply := "```json\n{\"medications\":[{\"name\":\"Paracetamol\",\"dosage\":\"650mg\",\"timings\":[\"Morning\",\"Night\"]}],\"exercises\":[]}\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, llm.PrescriptionPrompt, parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": modelReply}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-flash", "gemini-1.5-flash")
	client.baseURL = server.URL

	result, err := client.ExtractStructured(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)
	require.Len(t, result.Medications, 1)
	assert.Equal(t, "Paracetamol", result.Medications[0].Name)
	assert.Equal(t, []string{"Morning", "Night"}, result.Medications[0].Timings)
	assert.Empty(t, result.Exercises)
}

func TestExtractStructuredMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "sorry, I cannot read this image"}}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-flash", "gemini-1.5-flash")
	client.baseURL = server.URL

	_, err := client.ExtractStructured(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	assert.Error(t, err)
}
