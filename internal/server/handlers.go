package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voifodas/voifodas/internal/chat"
	"github.com/voifodas/voifodas/internal/prompt"
	"github.com/voifodas/voifodas/internal/types"
)

const defaultSessionID = "default"

type chatStreamRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	Personality string `json:"personality"`
}

type quickActionRequest struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

type ocrRequest struct {
	Image   string `json:"image"`
	Analyze bool   `json:"analyze"`
	Prompt  string `json:"prompt"`
}

type analyzeRequest struct {
	ScreenContext     string `json:"screen_context"`
	TranscriptContext string `json:"transcript_context"`
	Question          string `json:"question"`
	PlaybookName      string `json:"playbook_name"`
	PlaybookPrompt    string `json:"playbook_prompt"`
	PlaybookContext   string `json:"playbook_context"`
}

type suggestRequest struct {
	Transcript      string `json:"transcript"`
	Screen          string `json:"screen"`
	PlaybookName    string `json:"playbook_name"`
	PlaybookPrompt  string `json:"playbook_prompt"`
	PlaybookContext string `json:"playbook_context"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	whisper := "unavailable"
	if s.transcriber != nil {
		whisper = "available"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Voifodas server running",
		"whisper": whisper,
		"device":  s.device,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "Transcription is not available")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, "Empty audio file")
		return
	}

	result, err := s.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		slog.Error("transcription request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":     result.Text,
		"language": result.Language,
		"status":   "success",
	})
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	if s.vision == nil {
		writeError(w, http.StatusServiceUnavailable, "OCR is not available")
		return
	}

	var req ocrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}

	data, mimeType, err := decodeImage(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image data")
		return
	}

	text, err := s.vision.ExtractText(r.Context(), data, mimeType)
	if err != nil {
		slog.Error("OCR request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"text":   text,
		"status": "success",
	}
	if req.Analyze && text != "" {
		analysis, err := s.chat.AnalyzeText(r.Context(), text, req.Prompt)
		if err != nil {
			slog.Error("OCR analysis failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["analysis"] = analysis
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}
	if req.Personality == "" {
		req.Personality = "concise"
	}

	enc := newSSEEncoder(w)
	if strings.TrimSpace(req.Message) == "" {
		_ = enc.Error("Empty message")
		return
	}

	failed := false
	for fragment, err := range s.chat.StreamChat(r.Context(), req.SessionID, req.Personality, req.Message) {
		if err != nil {
			_ = enc.Error(err.Error())
			failed = true
			break
		}
		if err := enc.Content(fragment); err != nil {
			// Client went away; stop pulling fragments.
			slog.Info("chat stream client disconnected", "session", req.SessionID)
			return
		}
	}
	if !failed {
		_ = enc.Done()
	}
}

func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	var req quickActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" {
		req.Action = "summarize"
	}

	result, err := s.chat.QuickAction(r.Context(), req.Action, req.Text)
	if err != nil {
		if errors.Is(err, chat.ErrMissingInput) {
			writeError(w, http.StatusBadRequest, "No text provided")
			return
		}
		slog.Error("quick action failed", "action", req.Action, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": result})
}

func (s *Server) handleContextAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	analysis, err := s.chat.AnalyzeContext(r.Context(), chat.AnalysisRequest{
		Bundle: types.ContextBundle{
			ScreenText:     req.ScreenContext,
			TranscriptText: req.TranscriptContext,
		},
		Playbook: types.Playbook{
			Name:           req.PlaybookName,
			SystemPrompt:   req.PlaybookPrompt,
			ContextFraming: req.PlaybookContext,
		},
		Question: req.Question,
	})
	if err != nil {
		if errors.Is(err, prompt.ErrEmptyContext) {
			writeError(w, http.StatusBadRequest, "No context provided")
			return
		}
		slog.Error("context analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": analysis,
		"status":   "success",
	})
}

func (s *Server) handleAutoSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	suggestion, err := s.chat.AutoSuggest(r.Context(), chat.SuggestRequest{
		Bundle: types.ContextBundle{
			ScreenText:     req.Screen,
			TranscriptText: req.Transcript,
		},
		Playbook: types.Playbook{
			Name:           req.PlaybookName,
			SystemPrompt:   req.PlaybookPrompt,
			ContextFraming: req.PlaybookContext,
		},
	})
	if err != nil {
		if errors.Is(err, prompt.ErrEmptyContext) {
			writeError(w, http.StatusBadRequest, "No context provided")
			return
		}
		slog.Error("auto suggest failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestion":    suggestion.Text,
		"detected_type": string(suggestion.Category),
		"status":        "success",
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	// Lenient on purpose: clearing never fails, even on a bad body.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	s.sessions.Clear(req.SessionID)
	slog.Info("cleared session history", "session", req.SessionID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	count := s.sessions.ClearAll()
	slog.Info("cleaned up sessions", "count", count)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "cleaned",
		"count":  count,
	})
}

// decodeImage accepts raw base64 or a data URL
// (`data:<mime>;base64,<payload>`).
func decodeImage(input string) ([]byte, string, error) {
	mimeType := "image/png"
	payload := input
	if strings.HasPrefix(input, "data:") {
		meta, rest, found := strings.Cut(strings.TrimPrefix(input, "data:"), ",")
		if !found {
			return nil, "", errors.New("malformed data URL")
		}
		payload = rest
		if m, _, ok := strings.Cut(meta, ";"); ok && m != "" {
			mimeType = m
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty image payload")
	}
	return data, mimeType, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
