package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"claim-pipeline-be/internal/entity"
)

// SSECompleteFrame is the terminal sentinel written after the last event.
const SSECompleteFrame = "data: {\"status\":\"complete\"}\n\n"

// WriteSSE streams a session as server-sent events. Each frame carries the
// event sequence number as its id so a client can resume with ?after=.
func (h *Hub) WriteSSE(ctx context.Context, source SessionSource, sessionID string, after int64, w *bufio.Writer) error {
	err := h.Follow(ctx, source, sessionID, after, func(ev entity.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", ev.Seq, data); err != nil {
			return err
		}
		return w.Flush()
	})
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"status": "error", "message": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		_ = w.Flush()
		return err
	}

	if _, err := w.WriteString(SSECompleteFrame); err != nil {
		return err
	}
	return w.Flush()
}
