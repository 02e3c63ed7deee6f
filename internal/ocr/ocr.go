// Package ocr defines the text-extraction boundary for the OCR strategy.
package ocr

import (
	"context"
	"errors"
)

// ErrNoText is returned when every extraction attempt failed or produced an
// empty result. Handlers map it to a client-facing 400: the image, not the
// service, is the problem.
var ErrNoText = errors.New("could not parse image")

// TextExtractor turns an image into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}
