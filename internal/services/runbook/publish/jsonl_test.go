package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
)

func TestJSONLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLines(&buf)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for seq := uint64(1); seq <= 2; seq++ {
		err := sink.Append(context.Background(), event.Event{
			ID:          "e" + string(rune('0'+seq)),
			RunbookID:   "r",
			Seq:         seq,
			Type:        "runbook.created",
			Timestamp:   at,
			PayloadJSON: json.RawMessage(`{"runbook_id":"r"}`),
		})
		if err != nil {
			t.Fatalf("append %d: %v", seq, err)
		}
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}

	events, err := ReadJSONLines(strings.NewReader("\n" + buf.String() + "\n\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 || events[1].ID != "e2" || events[1].Seq != 2 {
		t.Fatalf("events = %+v", events)
	}
	if !events[0].Timestamp.Equal(at) || string(events[0].PayloadJSON) != `{"runbook_id":"r"}` {
		t.Fatalf("first = %+v", events[0])
	}
}

func TestReadJSONLinesReportsLine(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader("{\"id\":\"a\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error = %v, want line 2 decode error", err)
	}
}
