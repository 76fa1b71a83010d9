package publish

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
)

const maxJSONLineBytes = 4 << 20

// JSONLines writes one envelope per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines writes envelopes to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Append writes evt as a single JSON line.
func (j *JSONLines) Append(_ context.Context, evt event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(evt); err != nil {
		return fmt.Errorf("write envelope %s: %w", evt.ID, err)
	}
	return nil
}

// ReadJSONLines decodes envelopes written by JSONLines. Blank lines are
// skipped.
func ReadJSONLines(r io.Reader) ([]event.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLineBytes)
	var events []event.Event
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var evt event.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("decode envelope line %d: %w", line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read envelopes: %w", err)
	}
	return events, nil
}
