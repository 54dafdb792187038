package handlers

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-transcription/internal/events"
)

// StreamHandler streams batch progress events over WebSocket
type StreamHandler struct {
	bus *events.Bus
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(bus *events.Bus) *StreamHandler {
	return &StreamHandler{
		bus: bus,
	}
}

// Handle replays stored events after ?since= for ?request_id= (all
// requests when empty), then forwards new ones until the client leaves.
// A since that is not a non-negative integer closes the connection with a
// policy violation.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	requestID := c.Query("request_id")
	since, err := parseSince(c.Query("since"))
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		if err := c.WriteMessage(websocket.CloseMessage, msg); err != nil {
			log.Printf("Progress stream close error: %v", err)
		}
		return
	}

	// subscribe before replaying so nothing published in between is lost
	subID, live := h.bus.Subscribe(64)
	defer h.bus.Unsubscribe(subID)

	last := since
	for _, ev := range h.bus.Since(requestID, since) {
		if err := c.WriteJSON(ev); err != nil {
			return
		}
		last = ev.Seq
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("Progress stream opened (request: %q, since: %d)", requestID, since)

	for {
		select {
		case ev, ok := <-live:
			if !ok {
				return
			}
			if ev.Seq <= last || (requestID != "" && ev.RequestID != requestID) {
				continue
			}
			if err := c.WriteJSON(ev); err != nil {
				log.Printf("Progress stream write error: %v", err)
				return
			}
			last = ev.Seq
		case <-closed:
			return
		}
	}
}

// parseSince reads the replay cursor; empty means from the beginning
func parseSince(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("invalid since %q", raw)
	}
	return since, nil
}
