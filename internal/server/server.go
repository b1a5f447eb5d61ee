// Package server exposes the claims intake engine over HTTP.
//
// The API splits into the conversation surface (start, respond, first
// prompt), the speech endpoints (stt, tts), claim data endpoints (review,
// compensation estimate, airports), document handling, and the final CRM
// submission. Health probes and Prometheus metrics ride on the same mux.
package server

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geniusjr001/claimsvoice/internal/airports"
	"github.com/geniusjr001/claimsvoice/internal/comp"
	"github.com/geniusjr001/claimsvoice/internal/convo"
	"github.com/geniusjr001/claimsvoice/internal/health"
	"github.com/geniusjr001/claimsvoice/internal/observe"
	"github.com/geniusjr001/claimsvoice/internal/uploads"
	"github.com/geniusjr001/claimsvoice/pkg/provider/crm"
	"github.com/geniusjr001/claimsvoice/pkg/provider/stt"
	"github.com/geniusjr001/claimsvoice/pkg/provider/tts"
)

// Config wires the server's collaborators. Engine, Uploads, Airports and
// Comp are required; the providers are optional and the matching endpoints
// return 503 when absent.
type Config struct {
	Engine   *convo.Engine
	Uploads  *uploads.Manager
	Airports *airports.Index
	Comp     *comp.Calculator

	STT stt.Provider
	TTS tts.Synthesizer
	CRM crm.Client

	Metrics *observe.Metrics
	Health  *health.Handler

	// FrontendURL is the claim-review page for completed conversations.
	FrontendURL string

	// CORSAllowedOrigins lists origins allowed for browser calls.
	// "*" allows any origin.
	CORSAllowedOrigins []string
}

// Server holds the handler state. FrontendURL may be swapped at runtime by
// the config watcher; everything else is fixed at construction.
type Server struct {
	engine   *convo.Engine
	uploads  *uploads.Manager
	airports *airports.Index
	comp     *comp.Calculator

	stt stt.Provider
	tts tts.Synthesizer
	crm crm.Client

	metrics *observe.Metrics
	health  *health.Handler

	corsOrigins []string

	mu          sync.RWMutex
	frontendURL string
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{
		engine:      cfg.Engine,
		uploads:     cfg.Uploads,
		airports:    cfg.Airports,
		comp:        cfg.Comp,
		stt:         cfg.STT,
		tts:         cfg.TTS,
		crm:         cfg.CRM,
		metrics:     m,
		health:      cfg.Health,
		corsOrigins: cfg.CORSAllowedOrigins,
		frontendURL: cfg.FrontendURL,
	}
}

// SetFrontendURL swaps the redirect target, used by config hot reload.
func (s *Server) SetFrontendURL(url string) {
	s.mu.Lock()
	s.frontendURL = url
	s.mu.Unlock()
}

func (s *Server) redirectURL(sessionID string) string {
	s.mu.RLock()
	base := s.frontendURL
	s.mu.RUnlock()
	if base == "" {
		return ""
	}
	return base + "?session_id=" + sessionID
}

// Handler builds the full route table wrapped in the CORS and observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /conversation/start", s.handleStart)
	mux.HandleFunc("POST /conversation/respond", s.handleRespond)
	mux.HandleFunc("GET /first-prompt", s.handleFirstPrompt)

	mux.HandleFunc("POST /stt", s.handleSTT)
	mux.HandleFunc("POST /tts", s.handleTTS)

	mux.HandleFunc("GET /claim-review/{session_id}", s.handleClaimReview)
	mux.HandleFunc("POST /estimate-compensation", s.handleEstimate)
	mux.HandleFunc("GET /airports", s.handleAirports)

	mux.HandleFunc("POST /upload-document/{session_id}", s.handleUploadDocument)
	mux.HandleFunc("GET /documents/{session_id}", s.handleListDocuments)
	mux.HandleFunc("DELETE /document/{session_id}/{filename}", s.handleRemoveDocument)

	mux.HandleFunc("POST /claim-submit-final", s.handleSubmitFinal)

	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}

	return s.cors(observe.Middleware(s.metrics)(mux))
}

// cors answers preflight requests and stamps allowed origins on responses.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
