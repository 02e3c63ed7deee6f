// Package ocrspace is a client for the OCR.space image-to-text API.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"carebridge/internal/ocr"
)

const defaultBaseURL = "https://api.ocr.space/parse/image"

// The free OCR.space tier fails transiently often enough that one attempt is
// not usable in practice; four attempts a second apart recovers most of them.
const (
	maxAttempts  = 4
	attemptPause = time.Second
)

// response mirrors the OCR.space result envelope.
type response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

type Client struct {
	apiKey    string
	client    *http.Client
	baseURL   string
	retryWait time.Duration
	logger    *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		// Per-attempt budget; handwriting on engine 2 can take a while.
		client:    &http.Client{Timeout: 45 * time.Second},
		baseURL:   defaultBaseURL,
		retryWait: attemptPause,
		logger:    logger,
	}
}

// ExtractText implements ocr.TextExtractor. Transport failures, non-200
// statuses, errored processing, and empty results are all retried up to
// maxAttempts with a constant pause; exhaustion yields ocr.ErrNoText.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), maxAttempts-1),
		ctx,
	)

	attempt := 0
	text, err := backoff.RetryWithData(func() (string, error) {
		attempt++
		text, err := c.parseImage(ctx, image, mimeType)
		if err != nil {
			c.logger.Warn("ocr attempt failed", "attempt", attempt, "error", err)
			return "", err
		}
		return text, nil
	}, bo)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ocr.ErrNoText, err)
	}
	return text, nil
}

func (c *Client) parseImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"apikey":    c.apiKey,
		"language":  "eng",
		"OCREngine": "2",
		"scale":     "true",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	fw, err := w.CreateFormFile("file", "prescription"+extFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ocr.space: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close ocr.space response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ocr.space returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if respBody.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr.space processing error: %s", respBody.ErrorMessage)
	}

	for _, result := range respBody.ParsedResults {
		if text := strings.TrimSpace(result.ParsedText); text != "" {
			return result.ParsedText, nil
		}
	}
	return "", fmt.Errorf("ocr.space returned no parsed text")
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
