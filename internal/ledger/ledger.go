// Package ledger appends extracted contact records to an external table.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TimestampLayout is the wall-clock format of the first column.
const TimestampLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("spreadsheet not found")

// Entry holds the fields of one extracted record and the user message it came from.
type Entry struct {
	Name          string
	Email         string
	Comment       string
	SourceMessage string
}

// Row is one appended line: [timestamp, name, email, comment, source_message].
type Row struct {
	Timestamp     string `json:"timestamp"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Comment       string `json:"comment"`
	SourceMessage string `json:"source_message"`
}

func NewRow(now time.Time, e Entry) Row {
	return Row{
		Timestamp:     now.Format(TimestampLayout),
		Name:          e.Name,
		Email:         e.Email,
		Comment:       e.Comment,
		SourceMessage: e.SourceMessage,
	}
}

func (r Row) Values() []interface{} {
	return []interface{}{r.Timestamp, r.Name, r.Email, r.Comment, r.SourceMessage}
}

// Appender appends one row per call. Appends are not idempotent: the same
// entry submitted twice yields two rows.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// Memory keeps rows in process memory. It backs tests and runs without a
// spreadsheet.
type Memory struct {
	mu   sync.Mutex
	rows []Row
	now  func() time.Time
	err  error
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Fail makes subsequent appends return err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, NewRow(m.now(), e))
	return nil
}

func (m *Memory) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
