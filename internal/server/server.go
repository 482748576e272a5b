// Package server exposes the evaluation pipeline over HTTP. The transport is
// deliberately thin: handlers decode multipart/JSON input, call into the eval
// package, and map results and failures to JSON bodies. All domain logic
// lives below this layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sayright/sayright/internal/eval"
	"github.com/sayright/sayright/internal/health"
	"github.com/sayright/sayright/internal/lang"
	"github.com/sayright/sayright/internal/observe"
	"github.com/sayright/sayright/pkg/provider/tts"
)

// maxUploadBytes caps a multipart upload. A minute of 48 kHz stereo PCM16 WAV
// is ~11 MiB; 32 MiB leaves generous headroom.
const maxUploadBytes = 32 << 20

// Deps are the collaborators the server needs. Evaluator is required; the
// rest degrade gracefully when nil (no transcription endpoint, no health
// checks, default logger).
type Deps struct {
	Evaluator   *eval.Evaluator
	Transcriber *eval.Transcriber
	TTS         tts.Provider
	Health      *health.Handler
	Metrics     *observe.Metrics
	Logger      *slog.Logger

	// Language is the tag transcriptions default to when the request does
	// not carry one.
	Language lang.Tag

	// AllowedOrigins lists origins permitted by the CORS middleware. Empty
	// allows any origin.
	AllowedOrigins []string
}

// Server is the HTTP boundary of the service.
type Server struct {
	evaluator   *eval.Evaluator
	transcriber *eval.Transcriber
	tts         tts.Provider
	health      *health.Handler
	metrics     *observe.Metrics
	log         *slog.Logger
	language    lang.Tag
	origins     []string
}

// New validates deps and returns a ready Server.
func New(d Deps) (*Server, error) {
	if d.Evaluator == nil {
		return nil, errors.New("server: evaluator is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Language == "" {
		d.Language = lang.EnUS
	}
	return &Server{
		evaluator:   d.Evaluator,
		transcriber: d.Transcriber,
		tts:         d.TTS,
		health:      d.Health,
		metrics:     d.Metrics,
		log:         d.Logger,
		language:    d.Language,
		origins:     d.AllowedOrigins,
	}, nil
}

// Handler returns the fully wired HTTP handler: routes, CORS, and (when
// metrics are configured) the request duration middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/speech/evaluate-pronunciation", s.handleEvaluate)
	mux.HandleFunc("POST /api/speech/synthesize", s.handleSynthesize)
	mux.HandleFunc("GET /api/speech/voices", s.handleVoices)
	if s.transcriber != nil {
		mux.HandleFunc("POST /api/speech/transcribe", s.handleTranscribe)
		mux.HandleFunc("POST /api/speech/read-aloud", s.handleReadAloud)
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(s.log, h)
	}
	return s.cors(h)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cors applies the CORS policy. An empty origin list allows any origin, which
// suits local development against browser front ends.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.origins) == 0 {
		return true
	}
	for _, o := range s.origins {
		if o == origin {
			return true
		}
	}
	return false
}

// errorBody is the JSON failure envelope shared by all endpoints.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
