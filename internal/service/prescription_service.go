package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"carebridge/internal/domain"
	"carebridge/internal/extract"
	"carebridge/internal/llm"
	"carebridge/internal/ocr"
	"carebridge/internal/preprocess"
	"carebridge/internal/telemetry"
)

// PrescriptionService turns an uploaded prescription image into structured
// medication records. Exactly one of the two strategies is wired at startup:
// a vision model that returns the JSON itself, or an OCR service whose raw
// text goes through the heuristic extractor.
type PrescriptionService struct {
	vision  llm.StructuredExtractor
	ocr     ocr.TextExtractor
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

func NewPrescriptionService(vision llm.StructuredExtractor, textExtractor ocr.TextExtractor, metrics *telemetry.Metrics, logger *slog.Logger) *PrescriptionService {
	return &PrescriptionService{
		vision:  vision,
		ocr:     textExtractor,
		metrics: metrics,
		tracer:  otel.Tracer("carebridge"),
		logger:  logger,
	}
}

// Process runs the configured strategy over the image. It returns
// ocr.ErrNoText (wrapped) when no text could be recovered; every other error
// is a service-side failure.
func (s *PrescriptionService) Process(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error) {
	ctx, span := s.tracer.Start(ctx, "prescription.process")
	defer span.End()

	s.metrics.Extractions.Add(ctx, 1)
	start := time.Now()
	s.logger.Info("prescription processing started", "mime_type", mimeType, "bytes", len(image))

	result, err := s.process(ctx, image, mimeType)
	s.metrics.ExtractionSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.ExtractionFailures.Add(ctx, 1)
		s.logger.Error("prescription processing failed", "error", err)
		return nil, err
	}

	s.logger.Info("prescription processing complete",
		"medications", len(result.Medications),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *PrescriptionService) process(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error) {
	if s.vision != nil {
		result, err := s.vision.ExtractStructured(ctx, image, mimeType)
		if err != nil {
			return nil, fmt.Errorf("vision extraction failed: %w", err)
		}
		result.Normalize()
		return result, nil
	}

	// OCR strategy: clean up the pixels first, then structure the text.
	prepared, preparedMIME := preprocess.Apply(image, mimeType)
	text, err := s.ocr.ExtractText(ctx, prepared, preparedMIME)
	if err != nil {
		return nil, err
	}

	return &domain.PrescriptionResult{
		Medications: extract.Medications(text),
		Exercises:   []domain.ExerciseRecord{},
	}, nil
}
