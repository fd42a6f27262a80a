// Package server is the HTTP boundary of the Voifodas backend. It
// adapts the request surface onto the dispatcher and capabilities and
// translates the error taxonomy into transport responses; per-request
// failures never terminate the process.
package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/voifodas/voifodas/internal/chat"
	"github.com/voifodas/voifodas/internal/session"
	"github.com/voifodas/voifodas/internal/speech"
	"github.com/voifodas/voifodas/internal/vision"
)

// Server routes requests to the dispatcher and capability clients. A
// nil transcriber or vision reader marks that capability unavailable;
// the affected endpoints answer 503 and everything else keeps working.
type Server struct {
	chat        *chat.Service
	sessions    *session.Store
	transcriber speech.Transcriber
	vision      vision.Reader
	device      string
	router      *mux.Router
}

// New wires the routes. device is the label reported by /health for
// where transcription runs.
func New(dispatcher *chat.Service, sessions *session.Store, transcriber speech.Transcriber, ocr vision.Reader, device string) *Server {
	s := &Server{
		chat:        dispatcher,
		sessions:    sessions,
		transcriber: transcriber,
		vision:      ocr,
		device:      device,
		router:      mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)
	s.router.HandleFunc("/ocr", s.handleOCR).Methods(http.MethodPost)
	s.router.HandleFunc("/chat/stream", s.handleChatStream).Methods(http.MethodPost)
	s.router.HandleFunc("/chat/quick", s.handleQuickAction).Methods(http.MethodPost)
	s.router.HandleFunc("/context/analyze", s.handleContextAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/suggest/auto", s.handleAutoSuggest).Methods(http.MethodPost)
	s.router.HandleFunc("/history/clear", s.handleClearHistory).Methods(http.MethodPost)
	s.router.HandleFunc("/maintenance/cleanup", s.handleCleanup).Methods(http.MethodPost)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// corsMiddleware admits the desktop client origins (localhost dev
// servers and packaged app:// origins).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "app://")
}
