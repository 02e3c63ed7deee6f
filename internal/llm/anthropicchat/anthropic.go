// Package anthropicchat adapts the Anthropic Messages API to the llm
// capability interfaces via the go-anthropic SDK.
package anthropicchat

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"carebridge/internal/domain"
	"carebridge/internal/llm"
)

// maxTokens bounds a reply; prescription JSON and a short supportive chat
// turn both fit comfortably.
const maxTokens = 1024

type Client struct {
	client *anthropic.Client
	model  string
}

func NewClient(apiKey, model string, opts ...anthropic.ClientOption) *Client {
	return &Client{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// buildRequest maps provider-neutral history onto a MessagesRequest: the
// system turn becomes the request's system prompt, the rest user messages.
func (c *Client) buildRequest(history []llm.Message) anthropic.MessagesRequest {
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
	}
	for _, msg := range history {
		if msg.Role == llm.RoleSystem {
			req.System = msg.Text
			continue
		}
		req.Messages = append(req.Messages, anthropic.NewUserTextMessage(msg.Text))
	}
	return req
}

// StreamReply implements llm.ChatStreamer. The SDK delivers deltas through a
// callback; a goroutine bridges them onto the event channel so the HTTP
// layer can forward fragments as they arrive.
func (c *Client) StreamReply(ctx context.Context, history []llm.Message) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent, 4)

	go func() {
		defer close(ch)
		_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: c.buildRequest(history),
			OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
				if text := data.Delta.GetText(); text != "" {
					select {
					case ch <- llm.StreamEvent{Text: text}:
					case <-ctx.Done():
					}
				}
			},
		})
		if err != nil && ctx.Err() == nil {
			ch <- llm.StreamEvent{Err: fmt.Errorf("anthropic stream failed: %w", err)}
		}
	}()

	return ch, nil
}

// ExtractStructured implements llm.StructuredExtractor.
func (c *Client) ExtractStructured(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64, mimeType, image,
				)),
				anthropic.NewTextMessageContent(llm.PrescriptionPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic vision call failed: %w", err)
	}

	var raw string
	for _, blk := range resp.Content {
		if text := blk.GetText(); text != "" {
			raw = text
			break
		}
	}
	return llm.DecodeResult(raw)
}
