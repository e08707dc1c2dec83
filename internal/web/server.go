package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ledger-chat/internal/chat"
	"ledger-chat/internal/storage"
)

const (
	sessionCookie = "ledger_chat_session"
	sessionHeader = "X-Session-ID"
)

type Options struct {
	// ModelLabel is shown in the sidebar.
	ModelLabel string
	// RateLimitPerMinute caps turns per session and new sessions per
	// client address. Zero disables both.
	RateLimitPerMinute int
	// Recorder backs /api/stats; nil disables it.
	Recorder storage.Recorder
}

// Server exposes the chat over HTTP. Each browser gets its own session via
// a cookie; API clients may pass the session id in X-Session-ID instead.
type Server struct {
	sessions   *chat.Manager
	controller *chat.Controller
	opts       Options
	turns      *keyedLimiter
	clients    *keyedLimiter
}

func NewServer(sessions *chat.Manager, controller *chat.Controller, opts Options) *Server {
	return &Server{
		sessions:   sessions,
		controller: controller,
		opts:       opts,
		turns:      newKeyedLimiter(opts.RateLimitPerMinute),
		clients:    newKeyedLimiter(opts.RateLimitPerMinute),
	}
}

// Router wires HTTP routes to the controller.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Post("/send", s.handleSend)
	r.Post("/reset", s.handleResetPage)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", s.handleChat)
		api.Post("/reset", s.handleReset)
		api.Get("/history", s.handleHistory)
		api.Delete("/session", s.handleTeardown)
		api.Get("/stats", s.handleStats)
	})

	return r
}

// session returns the caller's session, creating one (and its cookie) on
// first contact. Only ids this server issued are looked up. ok is false when
// the client has opened too many sessions recently.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (sess *chat.Session, ok bool) {
	if id := sessionID(r); id != "" {
		if existing, err := s.sessions.Get(id); err == nil {
			return existing, true
		}
	}
	if !s.clients.allow(clientIP(r)) {
		return nil, false
	}
	sess = s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, true
}

// sessionID returns the id the caller sent, or "" when it is not one the
// web layer could have issued.
func sessionID(r *http.Request) string {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// RunJanitor drops idle sessions and rate-limit buckets until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(idle)
		}
	}
}

func (s *Server) sweep(idle time.Duration) {
	n := s.sessions.Sweep(idle)
	s.turns.sweep(idle)
	s.clients.sweep(idle)
	if n > 0 {
		log.Printf("🧹 dropped %d idle web sessions", n)
	}
}
