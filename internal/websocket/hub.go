// Package websocket pushes job progress to subscribers of /ws/jobs/:id.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/masterlab/api/internal/model"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
)

type subscriber struct {
	jobID string
	send  chan []byte
}

// trySend queues a message without ever blocking the caller. A full buffer
// means the writer is slow or gone; the message is dropped and the client
// catches up by polling.
func (s *subscriber) trySend(data []byte) {
	select {
	case s.send <- data:
	default:
	}
}

// Hub fans job events out to WebSocket subscribers, grouped by job id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub returns an empty hub. No background goroutine is needed; fan-out
// happens on the broadcaster's goroutine with a non-blocking send.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) subscribe(jobID string) *subscriber {
	s := &subscriber{jobID: jobID, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*subscriber]struct{})
	}
	h.subs[jobID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.jobID]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			close(s.send)
			if len(set) == 0 {
				delete(h.subs, s.jobID)
			}
		}
	}
	h.mu.Unlock()
}

func (h *Hub) publish(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal ws message: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[jobID] {
		s.trySend(data)
	}
}

// BroadcastProgress sends a stage transition to all job subscribers.
func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, step string) {
	h.publish(jobID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		JobID:       jobID,
		Progress:    progress,
		Status:      status,
		CurrentStep: step,
	})
}

// BroadcastComplete sends the final result to all job subscribers.
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.publish(jobID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError sends a failure notification to all job subscribers.
func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.publish(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

// HandleConnection serves one subscriber connection until it closes.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	s := h.subscribe(jobID)
	defer h.unsubscribe(s)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case message, ok := <-s.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			s.trySend(data)
		}
	}
}
