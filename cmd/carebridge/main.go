package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"carebridge/internal/config"
	"carebridge/internal/llm"
	"carebridge/internal/llm/anthropicchat"
	"carebridge/internal/llm/gemini"
	"carebridge/internal/llm/openaicompat"
	"carebridge/internal/logging"
	"carebridge/internal/ocr"
	"carebridge/internal/ocr/ocrspace"
	"carebridge/internal/service"
	"carebridge/internal/telemetry"
	"carebridge/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, metrics, telemetryCleanup, err := telemetry.Init(ctx, cfg.TelemetryDir)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		return
	}
	defer telemetryCleanup()

	streamer := newChatStreamer(cfg, logger)
	chatService := service.NewChatService(streamer, metrics, logger)

	extractor, textExtractor := newExtractors(cfg, logger)
	prescriptionService := service.NewPrescriptionService(extractor, textExtractor, metrics, logger)

	server := web.NewServer(chatService, prescriptionService, cfg.ChatProvider, cfg.FrontendURL, cfg.DebugEndpoints, logger)
	httpServer := server.HTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "chat_provider", cfg.ChatProvider, "extract_strategy", cfg.ExtractStrategy)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}

func newChatStreamer(cfg *config.Config, logger *slog.Logger) llm.ChatStreamer {
	switch cfg.ChatProvider {
	case config.ProviderGroq:
		logger.Info("using Groq chat provider", "model", cfg.GroqModel)
		return openaicompat.NewGroq(cfg.GroqAPIKey, cfg.GroqModel)
	case config.ProviderDeepSeek:
		logger.Info("using DeepSeek chat provider", "model", cfg.DeepSeekModel)
		return openaicompat.NewDeepSeek(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
	case config.ProviderAnthropic:
		logger.Info("using Anthropic chat provider", "model", cfg.AnthropicModel)
		return anthropicchat.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		logger.Info("using Gemini chat provider", "model", cfg.GeminiChatModel)
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiChatModel, cfg.GeminiVisionModel)
	}
}

// newExtractors returns the structured extractor or the OCR text extractor for
// the configured strategy. Exactly one of the two is non-nil.
func newExtractors(cfg *config.Config, logger *slog.Logger) (llm.StructuredExtractor, ocr.TextExtractor) {
	if cfg.ExtractStrategy == config.StrategyOCR {
		logger.Info("using OCR extraction strategy")
		return nil, ocrspace.NewClient(cfg.OCRSpaceAPIKey, logger)
	}
	if cfg.VisionProvider == config.ProviderAnthropic {
		logger.Info("using Anthropic vision extraction", "model", cfg.AnthropicModel)
		return anthropicchat.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	logger.Info("using Gemini vision extraction", "model", cfg.GeminiVisionModel)
	return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiChatModel, cfg.GeminiVisionModel), nil
}
