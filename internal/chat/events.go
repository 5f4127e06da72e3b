package chat

import (
	"encoding/json"
	"time"
)

// EventType names an event exchanged with clients over the transport layer.
type EventType string

// Inbound event types (client to server).
const (
	EventJoin        EventType = "join"
	EventSendMessage EventType = "send-message"
	EventTyping      EventType = "typing"
	EventStopTyping  EventType = "stop-typing"
	EventSwitchRoom  EventType = "switch-room"
)

// Outbound event types (server to client).
const (
	EventReceiveMessage EventType = "receive-message"
	EventUserJoined     EventType = "user-joined"
	EventUserLeft       EventType = "user-left"
	EventRoomUsers      EventType = "room-users"
	EventUserTyping     EventType = "user-typing"
	EventUserStopTyping EventType = "user-stop-typing"
	EventError          EventType = "error"
)

// Envelope is the wire frame carried in a single WebSocket text message.
// The payload stays raw until the event type is known.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is a fully-formed outbound event addressed to one connection.
type Event struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// JoinPayload carries the identity and room for an inbound join.
type JoinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// SendMessagePayload carries the content of an inbound chat message.
type SendMessagePayload struct {
	Content string `json:"content"`
}

// SwitchRoomPayload names the room a seated connection wants to move to.
type SwitchRoomPayload struct {
	NewRoom string `json:"newRoom"`
}

// Message is a relayed chat message. It is constructed at relay time and has
// no lifecycle beyond the broadcast; nothing is persisted.
type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

// RoomUser is one entry of a room-users roster broadcast.
type RoomUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SystemNotice is the payload of user-joined and user-left events.
type SystemNotice struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// TypingNotice is the payload of user-typing and user-stop-typing events.
type TypingNotice struct {
	Username string `json:"username"`
}

// ErrorPayload is delivered only to the connection whose event was rejected.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
