package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types sent to live clients.
const (
	EventNotification = "notification"
	EventLogoutUser   = "logout_user"
	EventDropped      = "messages_dropped"
)

// Event is the envelope of every server-to-client message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Encode renders the event as a single text frame.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return data, nil
}

var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
