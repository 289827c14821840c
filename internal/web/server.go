package web

import (
	"bufio"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vbonduro/sintaxia/internal/photostore"
	"github.com/vbonduro/sintaxia/internal/service"
)

type Server struct {
	service    *service.ChatService
	hub        *Hub
	templates  embed.FS
	photoStore photostore.PhotoStore
	modelsDir  string
	mux        *http.ServeMux
	logger     *slog.Logger
}

func NewServer(svc *service.ChatService, hub *Hub, tmpl embed.FS, ps photostore.PhotoStore, modelsDir string, logger *slog.Logger) *Server {
	s := &Server{
		service:    svc,
		hub:        hub,
		templates:  tmpl,
		photoStore: ps,
		modelsDir:  modelsDir,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /viewer", s.handleViewer)
	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	s.mux.HandleFunc("GET /modelos/{file}", s.handleModel)
	s.mux.HandleFunc("GET /subidas/{key}", s.handleGetUpload)
	s.mux.HandleFunc("POST /api/imagen", s.handleImage)
	s.mux.HandleFunc("POST /api/mensaje", s.handleMessage)
	s.mux.HandleFunc("GET /api/historial", s.handleHistory)
	s.mux.HandleFunc("GET /api/exportar", s.handleExport)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
}

// securityHeaders adds defensive HTTP response headers to every response.
// The viewer loads three.js from a CDN and talks back over the websocket.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob:; "+
				"connect-src 'self' ws: wss:")
		next.ServeHTTP(w, r)
	})
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

// Hijack passes through to the wrapped writer so /ws can upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
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
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr with the timeouts the chat
// endpoints need; image analysis and LLM calls can take a while.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// renderPage parses and executes a single page template.
func (s *Server) renderPage(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.Execute(w, data)
}
