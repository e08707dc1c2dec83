package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// maxLineBytes bounds one log line; longer lines are skipped on load.
const maxLineBytes = 10 * 1024 * 1024

type FileRecorder struct {
	path    string
	mu      sync.Mutex
	maxLine int
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init log file: %w", err)
	}
	_ = f.Close()
	return &FileRecorder{path: path, maxLine: maxLineBytes}, nil
}

func (r *FileRecorder) AppendInteraction(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(event); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

func (r *FileRecorder) LoadInteractions() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	var events []Event
	for {
		line, oversized, err := readLine(br, r.maxLine)
		if oversized {
			log.Printf("skipping interaction log line over %d bytes", r.maxLine)
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			var ev Event
			if jerr := json.Unmarshal(line, &ev); jerr == nil {
				events = append(events, ev)
			}
		}
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}
}

// readLine reads up to and including the next newline. Past limit bytes the
// rest of the line is drained and oversized is reported instead of the data.
func readLine(br *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, rerr
	}
}
