package websocket

import (
	"encoding/json"

	"canvas-service/internal/board"
)

// Envelope is the frame exchanged with drawing clients: the event name plus
// its payload, left raw so the router can decode per event type and draw
// fragments can be relayed without re-encoding.
type Envelope struct {
	Type board.EventType `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func marshalEnvelope(event board.EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Data: data})
}

func errorEnvelope(message string) []byte {
	data, _ := marshalEnvelope(board.EventError, board.ErrorPayload{Message: message})
	return data
}
