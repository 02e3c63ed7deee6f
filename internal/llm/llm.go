// Package llm defines the provider-neutral capability interfaces the rest of
// the service programs against. Each hosted provider gets one adapter
// package; swapping providers is a configuration change, never an extraction
// change.
package llm

import (
	"context"

	"carebridge/internal/domain"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// PersonaPrompt is the fixed instruction prepended to every chat exchange.
const PersonaPrompt = "Hello! I'm here to support you through your recovery. How are you feeling today?"

// PrescriptionPrompt asks a vision-capable model to return the target JSON
// shape directly, bypassing the heuristic extractor.
const PrescriptionPrompt = `Analyze the attached prescription image and extract the following information in JSON format:
- A list of medications with their name, dosage, and timings.
- A list of exercises with their name, duration, and frequency.

Example JSON output:
{
  "medications": [
    {
      "name": "Medication Name",
      "dosage": "Dosage",
      "timings": ["Morning", "Afternoon", "Night"]
    }
  ],
  "exercises": [
    {
      "name": "Exercise Name",
      "duration": "Duration",
      "frequency": "Frequency"
    }
  ]
}
Respond with the JSON object only.`

// Message is one turn of a chat exchange.
type Message struct {
	Role string
	Text string
}

// StreamEvent is one incremental fragment of a streamed reply, or a mid-stream
// error. Exactly one field is set.
type StreamEvent struct {
	Text string
	Err  error
}

// ChatStreamer produces a lazy, finite, non-restartable sequence of reply
// fragments in upstream emission order. The returned channel is closed when
// the reply completes, ctx is cancelled, or an error event is sent.
type ChatStreamer interface {
	StreamReply(ctx context.Context, history []Message) (<-chan StreamEvent, error)
}

// StructuredExtractor sends an image to a vision-capable model and asks for
// the prescription JSON directly. A missing or malformed JSON body is a hard
// failure, not a partial result.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error)
}
