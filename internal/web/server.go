package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"carebridge/internal/service"
)

type Server struct {
	chat          *service.ChatService
	prescriptions *service.PrescriptionService
	mux           *http.ServeMux
	cors          *cors.Cors
	logger        *slog.Logger
	webhookPath   string
	debug         bool
}

// NewServer wires the two services behind the HTTP surface. chatProvider
// names the webhook path segment, e.g. "groq" registers /groq-webhook.
func NewServer(chat *service.ChatService, prescriptions *service.PrescriptionService, chatProvider, frontendURL string, debug bool, logger *slog.Logger) *Server {
	s := &Server{
		chat:          chat,
		prescriptions: prescriptions,
		mux:           http.NewServeMux(),
		logger:        logger,
		webhookPath:   fmt.Sprintf("/%s-webhook", chatProvider),
		debug:         debug,
		cors: cors.New(cors.Options{
			AllowedOrigins:   []string{frontendURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleStatus)
	s.mux.HandleFunc("POST "+s.webhookPath, s.handleChatWebhook)
	s.mux.HandleFunc("POST /process_prescription", s.handleProcessPrescription)
	if s.debug {
		s.mux.HandleFunc("POST /debug-image", s.handleDebugImage)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "online"}, s.logger)
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so streaming handlers still work
// behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.cors.Handler(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr, "webhook", s.webhookPath)
	return s.HTTPServer(addr).ListenAndServe()
}

// HTTPServer applies timeouts sized for the slowest request we serve: the
// OCR path can spend up to four 45s attempts before answering.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 240 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write json response", "error", err)
	}
}

// writeError sends the {"error": "..."} body every failure path uses.
func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
