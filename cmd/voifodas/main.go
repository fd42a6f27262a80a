// Package main is the entry point for the Voifodas backend server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voifodas/voifodas/internal/chat"
	"github.com/voifodas/voifodas/internal/config"
	"github.com/voifodas/voifodas/internal/llm"
	"github.com/voifodas/voifodas/internal/prompt"
	"github.com/voifodas/voifodas/internal/server"
	"github.com/voifodas/voifodas/internal/session"
	"github.com/voifodas/voifodas/internal/speech"
	"github.com/voifodas/voifodas/internal/vision"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	generator, err := llm.NewGroq(cfg.GroqAPIKey, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to create generation client: %v", err)
	}

	transcriber, err := speech.NewWhisper(cfg.GroqAPIKey, cfg.WhisperModel)
	if err != nil {
		log.Fatalf("failed to create transcriber: %v", err)
	}

	// OCR is optional: without a Gemini key the endpoint answers 503
	// and the rest of the server keeps working.
	var ocr vision.Reader
	if cfg.GeminiAPIKey != "" {
		gemini, err := vision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.VisionModel)
		if err != nil {
			log.Fatalf("failed to create OCR reader: %v", err)
		}
		ocr = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set, OCR endpoint disabled")
	}

	sessions := session.NewStore(cfg.HistoryWindow)
	prompts := prompt.NewBuilder(cfg.ScreenContextLimit, cfg.TranscriptContextLimit)
	dispatcher := chat.NewService(generator, sessions, prompts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.New(dispatcher, sessions, transcriber, ocr, "cloud").Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		cancel()
	}()

	slog.Info("starting Voifodas server", "port", cfg.Port, "model", cfg.ChatModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
