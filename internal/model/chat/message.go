package chat

import (
	"fmt"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ParseSender validates a wire value. An empty value defaults to the user.
func ParseSender(raw string) (Sender, error) {
	switch Sender(raw) {
	case "", SenderUser:
		return SenderUser, nil
	case SenderBot:
		return SenderBot, nil
	default:
		return "", fmt.Errorf("invalid sender %q", raw)
	}
}

// Message is one entry of a widget conversation. Messages are never mutated once appended.
type Message struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
