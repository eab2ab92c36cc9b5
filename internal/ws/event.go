package ws

import "encoding/json"

// Event kinds on the realtime channel. The names match the wire protocol the
// frontend listens on.
const (
	EventOnlineUsers    = "getOnlineUsers"
	EventNewMessage     = "newMessage"
	EventMessageDeleted = "messageDeleted"
)

// Event is the envelope for every frame in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DeletePayload travels with messageDeleted frames. UserIDs is only set on
// the client->server relay leg and names the two participants to notify.
type DeletePayload struct {
	MessageID         string `json:"message_id"`
	DeleteForEveryone bool   `json:"delete_for_everyone"`
	UserIDs           []int  `json:"user_ids,omitempty"`
}

func marshalEvent(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Payload: raw})
}
