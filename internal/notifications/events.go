package notifications

import (
	"encoding/json"
	"time"
)

// Event types delivered to users over the realtime channel.
const (
	EventFriendRequestReceived = "friend_request_received"
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventFriendRequestRejected = "friend_request_rejected"
	EventCommentCreated        = "comment_created"
	EventPostLiked             = "post_liked"
	EventMessagesDropped       = "messages_dropped"
	EventConnected             = "connected"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// EncodeEvent marshals an event of eventType stamped with the current time.
func EncodeEvent(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}
