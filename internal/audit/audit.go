// Package audit keeps the append-only deployment trail operators read after a
// failed or interrupted rollout.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/ameistad/deployctl/internal/constants"
)

type Action string

const (
	ActionBackup      Action = "backup"
	ActionMigrate     Action = "migrate"
	ActionHealthcheck Action = "healthcheck"
	ActionRollback    Action = "rollback"
	ActionDeploy      Action = "deploy"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Event is one line of the audit log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	App       string    `json:"app"`
	Tag       string    `json:"tag"`
	Action    Action    `json:"action"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail"`
}

// Writer appends events to a JSONL file. Each Append opens, writes, fsyncs and
// closes the file, so nothing is lost if the process dies right after.
type Writer struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

func (w *Writer) Path() string {
	return w.path
}

// Append stamps e with the current time when it has none and writes it.
func (w *Writer) Append(e Event) (Event, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = w.now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.ModeFileDefault)
	if err != nil {
		return e, fmt.Errorf("failed to open audit log %s: %w", w.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return e, fmt.Errorf("failed to append audit event: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return e, fmt.Errorf("failed to sync audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return e, fmt.Errorf("failed to close audit log: %w", err)
	}
	return e, nil
}

// ReadEvents returns every event in the log at path, oldest first. Lines that
// do not decode are skipped. A missing file yields no events.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("failed to read audit log %s: %w", path, err)
	}
	return events, nil
}

// Tail returns the last n events for app (all apps when app is empty).
func Tail(events []Event, app string, n int) []Event {
	var filtered []Event
	for _, e := range events {
		if app == "" || e.App == app {
			filtered = append(filtered, e)
		}
	}
	if n > 0 && len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}
