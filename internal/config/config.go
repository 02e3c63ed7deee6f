package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Provider and strategy selectors.
const (
	ProviderGemini    = "gemini"
	ProviderGroq      = "groq"
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"

	StrategyVision = "vision"
	StrategyOCR    = "ocr"
)

type Config struct {
	ListenAddr  string
	FrontendURL string

	ChatProvider    string
	ExtractStrategy string
	VisionProvider  string

	GeminiAPIKey    string
	GroqAPIKey      string
	DeepSeekAPIKey  string
	AnthropicAPIKey string
	OCRSpaceAPIKey  string

	GeminiChatModel   string
	GeminiVisionModel string
	GroqModel         string
	DeepSeekModel     string
	AnthropicModel    string

	LogLevel       string
	LogFile        string
	TelemetryDir   string
	DebugEndpoints bool
}

func Load() *Config {
	// A .env file is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		ChatProvider:    getEnv("CHAT_PROVIDER", ProviderGemini),
		ExtractStrategy: getEnv("EXTRACT_STRATEGY", StrategyVision),
		VisionProvider:  getEnv("VISION_PROVIDER", ProviderGemini),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OCRSpaceAPIKey:  getEnv("OCR_SPACE_API_KEY", ""),

		GeminiChatModel:   getEnv("GEMINI_CHAT_MODEL", "gemini-1.5-flash"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
		GroqModel:         getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		DeepSeekModel:     getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20240620"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		TelemetryDir:   getEnv("TELEMETRY_DIR", "logs"),
		DebugEndpoints: os.Getenv("DEBUG_ENDPOINTS") == "1",
	}
}

// Validate checks that the selected providers have their keys. A missing key
// for an unselected provider is fine; a missing key for the active one is a
// fatal startup error.
func (c *Config) Validate() error {
	chatKeys := map[string]string{
		ProviderGemini:    c.GeminiAPIKey,
		ProviderGroq:      c.GroqAPIKey,
		ProviderDeepSeek:  c.DeepSeekAPIKey,
		ProviderAnthropic: c.AnthropicAPIKey,
	}
	key, ok := chatKeys[c.ChatProvider]
	if !ok {
		return fmt.Errorf("unknown CHAT_PROVIDER %q", c.ChatProvider)
	}
	if key == "" {
		return fmt.Errorf("%s_API_KEY is required when CHAT_PROVIDER=%s", envPrefix(c.ChatProvider), c.ChatProvider)
	}

	switch c.ExtractStrategy {
	case StrategyVision:
		switch c.VisionProvider {
		case ProviderGemini:
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required when VISION_PROVIDER=gemini")
			}
		case ProviderAnthropic:
			if c.AnthropicAPIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY is required when VISION_PROVIDER=anthropic")
			}
		default:
			return fmt.Errorf("VISION_PROVIDER %q is not vision-capable", c.VisionProvider)
		}
	case StrategyOCR:
		if c.OCRSpaceAPIKey == "" {
			return fmt.Errorf("OCR_SPACE_API_KEY is required when EXTRACT_STRATEGY=ocr")
		}
	default:
		return fmt.Errorf("unknown EXTRACT_STRATEGY %q", c.ExtractStrategy)
	}

	return nil
}

func envPrefix(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "DEEPSEEK"
	case ProviderGroq:
		return "GROQ"
	case ProviderAnthropic:
		return "ANTHROPIC"
	default:
		return "GEMINI"
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
