// Package gemini adapts the Google Generative Language API to the llm
// capability interfaces: streamed chat completions and structured
// prescription extraction from an image.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"carebridge/internal/domain"
	"carebridge/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// request types mirror the generateContent wire format.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type request struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"system_instruction,omitempty"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type Client struct {
	apiKey      string
	chatModel   string
	visionModel string
	client      *http.Client
	baseURL     string
}

func NewClient(apiKey, chatModel, visionModel string) *Client {
	return &Client{
		apiKey:      apiKey,
		chatModel:   chatModel,
		visionModel: visionModel,
		client:      &http.Client{},
		baseURL:     defaultBaseURL,
	}
}

// buildRequest maps provider-neutral history onto the Gemini wire format.
// The system turn becomes a system_instruction; everything else is a user
// content entry.
func buildRequest(history []llm.Message) request {
	var req request
	for _, msg := range history {
		if msg.Role == llm.RoleSystem {
			req.SystemInstruction = &content{Parts: []part{{Text: msg.Text}}}
			continue
		}
		req.Contents = append(req.Contents, content{
			Role:  "user",
			Parts: []part{{Text: msg.Text}},
		})
	}
	return req
}

func (c *Client) post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, errBody)
	}
	return resp, nil
}

// StreamReply implements llm.ChatStreamer via streamGenerateContent with SSE
// delivery. Fragments are forwarded in emission order, one event per chunk.
func (c *Client) StreamReply(ctx context.Context, history []llm.Message) (<-chan llm.StreamEvent, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.chatModel, c.apiKey)
	resp, err := c.post(ctx, url, buildRequest(history))
	if err != nil {
		return nil, err
	}

	// One fragment in flight at a time is all the relay needs; a small
	// buffer just decouples network reads from the writer.
	ch := make(chan llm.StreamEvent, 4)

	go func() {
		defer close(ch)
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Error("failed to close gemini stream body", "error", err)
			}
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var chunk response
			if err := json.Unmarshal([]byte(line[6:]), &chunk); err != nil {
				continue
			}
			if text := firstText(chunk); text != "" {
				select {
				case ch <- llm.StreamEvent{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			ch <- llm.StreamEvent{Err: fmt.Errorf("read gemini stream: %w", err)}
		}
	}()

	return ch, nil
}

// ExtractStructured implements llm.StructuredExtractor: the image plus the
// extraction prompt go to the vision model, which replies with the target
// JSON itself.
func (c *Client) ExtractStructured(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error) {
	body := request{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: llm.PrescriptionPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.visionModel, c.apiKey)
	resp, err := c.post(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return llm.DecodeResult(firstText(respBody))
}

// firstText returns the first non-empty text part of the first candidate.
func firstText(r response) string {
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}
