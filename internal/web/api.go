package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"ledger-chat/internal/analytics"
	"ledger-chat/internal/chat"
	"ledger-chat/internal/llm"
)

type chatResponse struct {
	chat.Result
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := s.session(w, r)
	if !ok || !s.turns.allow(sess.ID) {
		respondError(w, http.StatusTooManyRequests, "too many messages, slow down")
		return
	}

	res, err := s.controller.Handle(r.Context(), sess, payload.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "message is required")
	case err != nil:
		respondJSON(w, http.StatusBadGateway, chatResponse{Result: res, SessionID: sess.ID, Error: err.Error()})
	default:
		respondJSON(w, http.StatusOK, chatResponse{Result: res, SessionID: sess.ID})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		respondError(w, http.StatusTooManyRequests, "too many new sessions, slow down")
		return
	}
	s.controller.Reset(sess, s.sessions.Instruction())
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset", "session_id": sess.ID})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		respondError(w, http.StatusTooManyRequests, "too many new sessions, slow down")
		return
	}
	respondJSON(w, http.StatusOK, struct {
		SessionID string        `json:"session_id"`
		Messages  []llm.Message `json:"messages"`
	}{sess.ID, sess.History()})
}

func (s *Server) handleTeardown(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		respondError(w, http.StatusNotFound, chat.ErrSessionNotFound.Error())
		return
	}
	if err := s.sessions.Teardown(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.turns.forget(id)
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Recorder == nil {
		respondError(w, http.StatusServiceUnavailable, "interaction log disabled")
		return
	}
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	events, err := s.opts.Recorder.LoadInteractions()
	if err != nil {
		log.Printf("failed to load interactions: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load interactions")
		return
	}
	respondJSON(w, http.StatusOK, analytics.AnalyzeDailyLogs(events, day))
}
