package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes structured event output to a writer.
//
// Two output modes:
//   - text (default): human-readable key=value lines, e.g.
//     [node_start] workflow=wf-1 node=analyzer
//   - JSON: one event object per line for machine consumption.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a log emitter. A nil writer defaults to
// stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit implements Emitter.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		encoded, err := json.Marshal(event)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(l.writer, "%s\n", encoded)
		return
	}

	line := fmt.Sprintf("[%s] workflow=%s", event.Msg, event.WorkflowID)
	if event.NodeName != "" {
		line += " node=" + event.NodeName
	} else if event.NodeID != "" {
		line += " node=" + event.NodeID
	}
	for key, value := range event.Meta {
		line += fmt.Sprintf(" %s=%v", key, value)
	}
	_, _ = fmt.Fprintln(l.writer, line)
}
