package chat

import "encoding/json"

// Inbound event names accepted from clients.
const (
	EventTyping        = "typing"
	EventFetchMessages = "fetchMessages"
	EventNewMessage    = "newMessage"
	EventEditMessage   = "editMessage"
	EventJoinRoom      = "joinRoom"
	EventMessageRead   = "messageRead"
	EventDeleteMessage = "deleteMessage"
)

// Outbound event names emitted to clients.
const (
	EventOnlineUsers        = "onlineUsers"
	EventMessages           = "messages"
	EventMessage            = "message"
	EventMessageSent        = "messageSent"
	EventMessageUpdated     = "messageUpdated"
	EventMessageDeleted     = "messageDeleted"
	EventHistoricalMessages = "historicalMessages"
	EventJoinedRoom         = "joinedRoom"
	EventError              = "error"
	EventAck                = "ack"
)

// Event is an outbound frame.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID string `json:"ackId,omitempty"`
}

// Frame is an inbound frame; Data is decoded per event type. AckID, when
// set, requests an acknowledgment event carrying the same id.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AckID string          `json:"ackId,omitempty"`
}

// Handle is a live connection the registry and router can deliver to. The
// transport owns the connection; chat state keeps only these references.
type Handle interface {
	Deliver(evt Event)
}
