package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
// "no-transform" keeps intermediary proxies from buffering or re-encoding
// the stream; X-Accel-Buffering disables nginx response buffering.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

type dataFrame struct {
	Delta string `json:"delta"`
}

type errorFrame struct {
	Message string `json:"message"`
}

// WriteData emits one delta token frame: data: {"delta":"<text>"}.
func WriteData(w io.Writer, delta string) error {
	payload, err := json.Marshal(dataFrame{Delta: delta})
	if err != nil {
		return fmt.Errorf("marshal data frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// WriteKeepAlive emits an SSE comment frame. Clients ignore comment lines,
// but the bytes keep idle-connection killers in the path from closing the
// stream.
func WriteKeepAlive(w io.Writer) error {
	_, err := io.WriteString(w, ": keep-alive\n\n")
	return err
}

// WriteErrorEvent emits the in-band failure frame used once the HTTP status
// line is already committed.
func WriteErrorEvent(w io.Writer, message string) error {
	payload, err := json.Marshal(errorFrame{Message: message})
	if err != nil {
		return fmt.Errorf("marshal error frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
	return err
}

// WriteDone emits the terminal frame. No frame may follow it.
func WriteDone(w io.Writer) error {
	_, err := io.WriteString(w, "data: [DONE]\n\n")
	return err
}
