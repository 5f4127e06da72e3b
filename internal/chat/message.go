package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxMessageLength caps message content, matching the client's input
// limit.
const DefaultMaxMessageLength = 500

// MessageRouter validates chat messages and stamps them with a server-side
// identifier and timestamp before the owning coordinator relays them.
type MessageRouter struct {
	maxLen int
}

// NewMessageRouter creates a router enforcing the given content length limit
// in runes; zero or negative falls back to DefaultMaxMessageLength.
func NewMessageRouter(maxLen int) *MessageRouter {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &MessageRouter{maxLen: maxLen}
}

// Compose trims and validates content and builds the relayed message for a
// sender already verified to be seated in room.
func (r *MessageRouter) Compose(room, username, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, invalidInputf("message content must not be empty")
	}
	if utf8.RuneCountInString(content) > r.maxLen {
		return Message{}, invalidInputf("message content exceeds %d characters", r.maxLen)
	}

	return Message{
		ID:        uuid.NewString(),
		Username:  username,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Room:      room,
	}, nil
}
