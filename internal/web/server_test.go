package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledger-chat/internal/chat"
	"ledger-chat/internal/extract"
	"ledger-chat/internal/ledger"
	"ledger-chat/internal/llm"
	"ledger-chat/internal/storage"
)

type scriptedLLM struct {
	reply string
	err   error
}

func (s scriptedLLM) Generate(context.Context, []llm.Message) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.reply, Model: "test"}, nil
}

type fixture struct {
	handler  http.Handler
	sessions *chat.Manager
	book     *ledger.Memory
}

func newFixture(t *testing.T, client llm.Client, opts Options) fixture {
	t.Helper()
	sessions := chat.NewManager("instrucciones")
	book := ledger.NewMemory()
	ctrl := chat.NewController(client, extract.New(extract.DefaultKeys), book, chat.WithRecorder(opts.Recorder))
	if opts.ModelLabel == "" {
		opts.ModelLabel = "GLM-4.5-AIR"
	}
	srv := NewServer(sessions, ctrl, opts)
	return fixture{handler: srv.Router(), sessions: sessions, book: book}
}

func (f fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestPageRendersSidebarAndHidesInstruction(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "hola"}, Options{})

	rr := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "Modelo: GLM-4.5-AIR")
	require.Contains(t, body, "Limpiar historial")
	require.NotContains(t, body, "instrucciones")
	sessionCookieFrom(t, rr)
}

func TestSendFormLogsRecordAndShowsBanner(t *testing.T) {
	reply := `Listo {"nombre":"Ana","email":"ana@x.com","comentario":"me gustó"}`
	f := newFixture(t, scriptedLLM{reply: reply}, Options{})

	first := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookieFrom(t, first)

	rr := f.do(postForm("/send", url.Values{"message": {"Soy Ana, ana@x.com, me gustó"}}), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, bannerLogged)
	require.Contains(t, body, "🧑")
	require.Contains(t, body, "Soy Ana, ana@x.com, me gustó")

	rows := f.book.Rows()
	require.Len(t, rows, 1)
	require.Equal(t, "Soy Ana, ana@x.com, me gustó", rows[0].SourceMessage)

	sess, err := f.sessions.Get(cookie.Value)
	require.NoError(t, err)
	require.Len(t, sess.History(), 3)
}

func TestSendFormShowsErrorReply(t *testing.T) {
	f := newFixture(t, scriptedLLM{err: errors.New("timeout")}, Options{})

	rr := f.do(postForm("/send", url.Values{"message": {"hola"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "⚠️ Error: ")
	require.NotContains(t, rr.Body.String(), bannerLogged)
	require.Empty(t, f.book.Rows())
}

func TestResetPage(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "respuesta"}, Options{})
	first := f.do(postForm("/send", url.Values{"message": {"hola"}}))
	cookie := sessionCookieFrom(t, first)

	rr := f.do(postForm("/reset", nil), cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), bannerReset)
	require.NotContains(t, rr.Body.String(), "respuesta")

	sess, err := f.sessions.Get(cookie.Value)
	require.NoError(t, err)
	require.Len(t, sess.History(), 1)
}

func TestAPIChatAndHistory(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "hola"}, Options{})

	rr := f.do(postJSON("/api/chat", `{"message":"buenas"}`))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Reply     string `json:"reply"`
		Logged    bool   `json:"logged"`
		Failed    bool   `json:"failed"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "hola", resp.Reply)
	require.False(t, resp.Logged)
	require.NotEmpty(t, resp.SessionID)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set(sessionHeader, resp.SessionID)
	rr = f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		SessionID string        `json:"session_id"`
		Messages  []llm.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Equal(t, resp.SessionID, hist.SessionID)
	require.Len(t, hist.Messages, 3)
	require.Equal(t, llm.RoleSystem, hist.Messages[0].Role)
}

func TestAPIChatRejectsBadInput(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{})

	rr := f.do(postJSON("/api/chat", `not json`))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(postJSON("/api/chat", `{"message":"  "}`))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIChatLedgerFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: `{"nombre":"a","email":"b","comentario":"c"}`}, Options{})
	f.book.Fail(errors.New("403 forbidden"))

	rr := f.do(postJSON("/api/chat", `{"message":"hola"}`))
	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Contains(t, rr.Body.String(), "ledger append failed")
	require.Contains(t, rr.Body.String(), `"reply"`)
}

func TestAPIRateLimit(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{RateLimitPerMinute: 2})
	sess := f.sessions.Create()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := postJSON("/api/chat", `{"message":"hola"}`)
		req.Header.Set(sessionHeader, sess.ID)
		codes = append(codes, f.do(req).Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAPITeardown(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{})
	sess := f.sessions.Create()

	req := httptest.NewRequest(http.MethodDelete, "/api/session", nil)
	req.Header.Set(sessionHeader, sess.ID)
	require.Equal(t, http.StatusNoContent, f.do(req).Code)

	_, err := f.sessions.Get(sess.ID)
	require.ErrorIs(t, err, chat.ErrSessionNotFound)

	req = httptest.NewRequest(http.MethodDelete, "/api/session", nil)
	req.Header.Set(sessionHeader, sess.ID)
	require.Equal(t, http.StatusNotFound, f.do(req).Code)
}

func TestAPIStats(t *testing.T) {
	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	f := newFixture(t, scriptedLLM{reply: `{"nombre":"a","email":"b","comentario":"c"}`}, Options{Recorder: rec})

	require.Equal(t, http.StatusOK, f.do(postJSON("/api/chat", `{"message":"hola"}`)).Code)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/stats?date="+time.Now().UTC().Format("2006-01-02"), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var stats struct {
		TotalMessages int `json:"total_messages"`
		RecordsLogged int `json:"records_logged"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.TotalMessages)
	require.Equal(t, 1, stats.RecordsLogged)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/stats?date=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIStatsDisabled(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{})
	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPIIgnoresSessionIDsItDidNotIssue(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "ok"}, Options{})
	tg := f.sessions.GetOrCreate("tg-42")

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set(sessionHeader, "tg-42")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		SessionID string        `json:"session_id"`
		Messages  []llm.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.NotEqual(t, "tg-42", hist.SessionID)
	require.Len(t, hist.Messages, 1)

	req = postJSON("/api/chat", `{"message":"Soy Ana, ana@x.com"}`)
	req.Header.Set(sessionHeader, "tg-42")
	require.Equal(t, http.StatusOK, f.do(req).Code)
	require.Len(t, tg.History(), 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/session", nil)
	req.Header.Set(sessionHeader, "tg-42")
	require.Equal(t, http.StatusNotFound, f.do(req).Code)
	_, err := f.sessions.Get("tg-42")
	require.NoError(t, err)
}

func TestAPICookielessFloodIsLimitedPerClient(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{RateLimitPerMinute: 1})

	counts := map[int]int{}
	for i := 0; i < 50; i++ {
		counts[f.do(postJSON("/api/chat", `{"message":"hola"}`)).Code]++
	}
	require.Equal(t, 1, counts[http.StatusOK])
	require.Equal(t, 49, counts[http.StatusTooManyRequests])
	require.Equal(t, 1, f.sessions.Count())
}

func TestPageLimitsNewSessionsPerClient(t *testing.T) {
	f := newFixture(t, scriptedLLM{reply: "x"}, Options{RateLimitPerMinute: 1})

	first := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)
	cookie := sessionCookieFrom(t, first)

	second := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Contains(t, second.Body.String(), bannerSlowDown)

	// The session already opened keeps working.
	require.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie).Code)
}

func TestSweepDropsIdleRateLimitBuckets(t *testing.T) {
	srv := NewServer(chat.NewManager("sys"), nil, Options{RateLimitPerMinute: 5})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	srv.turns.now = clock
	srv.clients.now = clock

	require.True(t, srv.turns.allow("a"))
	require.True(t, srv.clients.allow("192.0.2.1"))
	now = now.Add(2 * time.Hour)
	require.True(t, srv.turns.allow("b"))

	srv.sweep(time.Hour)
	require.Equal(t, 1, srv.turns.len())
	require.Equal(t, 0, srv.clients.len())
}
