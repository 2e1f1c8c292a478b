package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/codrblog/autoshell/pkg/domain"
)

// Frame encodes one event as an SSE frame. The payload is JSON-encoded;
// the task ID is implied by the stream.
func Frame(ev domain.TaskEvent) ([]byte, error) {
	name := ev.Name
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(name) + 16)
	buf.WriteString("event: ")
	buf.WriteString(string(name))
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
