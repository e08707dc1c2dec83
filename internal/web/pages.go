package web

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"

	"ledger-chat/internal/chat"
	"ledger-chat/internal/llm"
)

//go:embed templates/chat.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.New("chat.html").Funcs(template.FuncMap{
	"avatar": avatar,
}).ParseFS(templatesFS, "templates/chat.html"))

const (
	bannerLogged   = "✅ ¡Datos enviados correctamente!"
	bannerReset    = "Historial limpiado ✅"
	bannerSlowDown = "Demasiados mensajes, esperá un momento."

	pageTitle = "🤖 Asistente ni tan inteligente"
)

type banner struct {
	Kind string // success, info, error
	Text string
}

type pageData struct {
	Title      string
	ModelLabel string
	Messages   []llm.Message
	// Failed is a one-off error reply that is shown but not kept in history.
	Failed  string
	Banners []banner
}

func avatar(role string) string {
	if role == llm.RoleUser {
		return "🧑"
	}
	return "🤖"
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		s.renderSlowDown(w, nil)
		return
	}
	s.render(w, http.StatusOK, s.page(sess))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok || !s.turns.allow(sess.ID) {
		s.renderSlowDown(w, sess)
		return
	}
	message := r.FormValue("message")

	res, err := s.controller.Handle(r.Context(), sess, message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		s.render(w, http.StatusOK, s.page(sess))
		return
	}

	data := s.page(sess)
	status := http.StatusOK
	if res.Failed {
		data.Failed = res.Reply
	}
	if res.Logged {
		data.Banners = append(data.Banners, banner{Kind: "success", Text: bannerLogged})
	}
	if err != nil {
		status = http.StatusBadGateway
		data.Banners = append(data.Banners, banner{Kind: "error", Text: "❌ " + err.Error()})
	}
	s.render(w, status, data)
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		s.renderSlowDown(w, nil)
		return
	}
	s.controller.Reset(sess, s.sessions.Instruction())
	data := s.page(sess)
	data.Banners = append(data.Banners, banner{Kind: "info", Text: bannerReset})
	s.render(w, http.StatusOK, data)
}

// page builds the view of a session; the instruction turn is never shown.
func (s *Server) page(sess *chat.Session) pageData {
	hist := sess.History()
	if len(hist) > 0 {
		hist = hist[1:]
	}
	return pageData{
		Title:      pageTitle,
		ModelLabel: s.opts.ModelLabel,
		Messages:   hist,
	}
}

// renderSlowDown answers 429 with the session's page, or an empty page when
// no session could be opened.
func (s *Server) renderSlowDown(w http.ResponseWriter, sess *chat.Session) {
	data := pageData{Title: pageTitle, ModelLabel: s.opts.ModelLabel}
	if sess != nil {
		data = s.page(sess)
	}
	data.Banners = append(data.Banners, banner{Kind: "error", Text: bannerSlowDown})
	s.render(w, http.StatusTooManyRequests, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		log.Printf("failed to render page: %v", err)
	}
}
