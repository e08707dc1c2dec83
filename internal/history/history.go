package history

import (
	"errors"
	"fmt"

	"ledger-chat/internal/llm"
)

var ErrUnknownRole = errors.New("unknown role")

// Store is the ordered turn list of a single session. The first turn is
// always the instruction turn. Callers serialize access per session.
type Store struct {
	turns []llm.Message
}

func New(instruction string) *Store {
	s := &Store{}
	s.Reset(instruction)
	return s
}

// Reset drops every turn and reseeds the instruction turn.
func (s *Store) Reset(instruction string) {
	s.turns = []llm.Message{{Role: llm.RoleSystem, Content: instruction}}
}

func (s *Store) Append(role, content string) error {
	if !llm.ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	s.turns = append(s.turns, llm.Message{Role: role, Content: content})
	return nil
}

func (s *Store) AppendUser(content string) { _ = s.Append(llm.RoleUser, content) }

func (s *Store) AppendAssistant(content string) { _ = s.Append(llm.RoleAssistant, content) }

// History returns a copy of every turn, instruction turn included.
func (s *Store) History() []llm.Message {
	out := make([]llm.Message, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Len() int { return len(s.turns) }
