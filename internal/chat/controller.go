package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ledger-chat/internal/extract"
	"ledger-chat/internal/ledger"
	"ledger-chat/internal/llm"
	"ledger-chat/internal/storage"
)

// ErrorPrefix marks a reply that replaces a failed completion call.
const ErrorPrefix = "⚠️ Error: "

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrLedger       = errors.New("ledger append failed")
)

// Result is what a handled turn renders.
type Result struct {
	Reply string `json:"reply"`
	// Logged is set when a ledger row was appended for this reply.
	Logged bool `json:"logged"`
	// Failed is set when Reply is an error string instead of a model reply.
	Failed bool `json:"failed"`
}

// Controller runs the per-turn pipeline: store the user turn, call the
// model, extract a record, append it to the ledger.
type Controller struct {
	llm       llm.Client
	extractor *extract.Extractor
	ledger    ledger.Appender
	recorder  storage.Recorder
	channel   string
	now       func() time.Time
}

type Option func(*Controller)

// WithRecorder records every handled turn in the interaction log.
func WithRecorder(r storage.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithChannel tags recorded turns with the surface they came from.
func WithChannel(channel string) Option {
	return func(c *Controller) { c.channel = channel }
}

func NewController(client llm.Client, extractor *extract.Extractor, appender ledger.Appender, opts ...Option) *Controller {
	c := &Controller{
		llm:       client,
		extractor: extractor,
		ledger:    appender,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle runs one user turn. The returned error is non-nil only when the
// ledger append failed; the reply is returned regardless.
func (c *Controller) Handle(ctx context.Context, s *Session, input string) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.AppendUser(input)
	res := Result{}

	resp, err := c.llm.Generate(ctx, s.store.History())
	if err != nil {
		log.Printf("❌ [%s] completion failed: %v", s.ID, err)
		res.Reply = ErrorPrefix + err.Error()
		res.Failed = true
	} else {
		res.Reply = resp.Content
		s.store.AppendAssistant(resp.Content)
		log.Printf("🤖 [%s] reply [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
			s.ID, resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
	}

	// Error strings go through extraction too, same as model replies.
	var ledgerErr error
	if rec, ok := c.extractor.Extract(res.Reply); ok {
		entry := ledger.Entry{Name: rec.Name, Email: rec.Email, Comment: rec.Comment, SourceMessage: input}
		if err := c.ledger.Append(ctx, entry); err != nil {
			ledgerErr = fmt.Errorf("%w: %v", ErrLedger, err)
			log.Printf("❌ [%s] %v", s.ID, ledgerErr)
		} else {
			res.Logged = true
		}
	}

	c.record(s.ID, input, res)
	return res, ledgerErr
}

// Reset discards every turn but the instruction turn.
func (c *Controller) Reset(s *Session, instruction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Reset(instruction)
	log.Printf("🧹 [%s] history cleared", s.ID)
}

func (c *Controller) record(sessionID, input string, res Result) {
	if c.recorder == nil {
		return
	}
	ev := storage.Event{
		Timestamp:         c.now().UTC(),
		SessionID:         sessionID,
		Channel:           c.channel,
		UserMessage:       input,
		AssistantResponse: res.Reply,
		Logged:            res.Logged,
		Failed:            res.Failed,
	}
	if err := c.recorder.AppendInteraction(ev); err != nil {
		log.Printf("failed to record interaction: %v", err)
	}
}
