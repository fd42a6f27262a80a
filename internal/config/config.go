// Package config loads configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime settings.
type Config struct {
	GroqAPIKey             string
	GeminiAPIKey           string
	Port                   int
	ChatModel              string
	WhisperModel           string
	VisionModel            string
	HistoryWindow          int
	ScreenContextLimit     int
	TranscriptContextLimit int
}

// Load reads env vars, applies defaults, and validates required fields.
func Load() Config {
	cfg := Config{
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		ChatModel:    os.Getenv("CHAT_MODEL"),
		WhisperModel: os.Getenv("WHISPER_MODEL"),
		VisionModel:  os.Getenv("VISION_MODEL"),
	}

	cfg.Port = getEnvInt("PORT", 5000)
	cfg.HistoryWindow = getEnvInt("HISTORY_WINDOW", 10)
	cfg.ScreenContextLimit = getEnvInt("SCREEN_CONTEXT_LIMIT", 2000)
	cfg.TranscriptContextLimit = getEnvInt("TRANSCRIPT_CONTEXT_LIMIT", 1000)

	if cfg.ChatModel == "" {
		cfg.ChatModel = "llama-3.1-8b-instant"
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = "whisper-large-v3"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gemini-2.0-flash"
	}

	if cfg.GroqAPIKey == "" {
		log.Fatal("GROQ_API_KEY environment variable is required")
	}
	if isPlaceholder(cfg.GroqAPIKey) {
		log.Fatal("GROQ_API_KEY is still set to a placeholder value; set a real API key")
	}

	return cfg
}

// isPlaceholder catches keys copied verbatim from a sample .env file.
func isPlaceholder(key string) bool {
	lowered := strings.ToLower(key)
	return strings.HasPrefix(lowered, "your_") || lowered == "changeme"
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
