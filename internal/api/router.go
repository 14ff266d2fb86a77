// Package api provides the REST and WebSocket API for abacus-service.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/ternarybob/abacus/internal/config"
	"github.com/ternarybob/abacus/internal/logger"
	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/session"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a key
// sequence or an expression.
const maxBodyBytes = 64 << 10

// Server represents the API server.
type Server struct {
	cfg      *config.Config
	router   chi.Router
	store    *session.Store
	registry *profiles.Registry
	upgrader websocket.Upgrader
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, store *session.Store, registry *profiles.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkLocalOrigin,
		},
	}

	s.setupRouter()
	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Optional API key authentication
	if s.cfg.API.APIKey != "" {
		r.Use(s.apiKeyAuth)
	}

	// Health and version skip auth; see apiKeyAuth.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
	})

	if s.cfg.API.Enabled {
		s.routeAPI(r)
	}

	s.router = r
}

// routeAPI registers the calculator REST and keypad routes.
func (s *Server) routeAPI(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/profiles", s.handleListProfiles)
		r.Post("/eval", s.handleEval)
	})

	r.Route("/sessions", func(r chi.Router) {
		// The keypad socket is long-lived and must not inherit the request timeout.
		r.Get("/{id}/ws", s.handleKeypad)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/", s.handleListSessions)
			if n := s.cfg.API.SessionsPerMinute; n > 0 {
				r.With(newRateLimiter(n).limit).Post("/", s.handleCreateSession)
			} else {
				r.Post("/", s.handleCreateSession)
			}
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/keys", s.handlePressKeys)
				r.Post("/clear-history", s.handleClearHistory)
			})
		})
	})
}

// MountMCP serves an MCP transport at /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// apiKeyAuth is middleware that validates API key.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health and version
		if r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}

		// Browsers cannot set headers on a WebSocket handshake, so the
		// query parameter is accepted as well.
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.cfg.API.APIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request through arbor.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.GetLogger().Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("duration", time.Since(start).String()).
			Msgf("HTTP %d", ww.Status())
	})
}

// checkLocalOrigin accepts same-host and localhost origins, and clients
// that send no Origin header at all.
func checkLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host {
		return true
	}
	for _, host := range []string{"http://localhost", "http://127.0.0.1"} {
		if origin == host || strings.HasPrefix(origin, host+":") {
			return true
		}
	}
	return false
}
