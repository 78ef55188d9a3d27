package chat

import "time"

// UserType is the label the classifier assigns to a visitor.
type UserType string

const (
	UserTypeUnknown        UserType = "unknown"
	UserTypeBrand          UserType = "brand"
	UserTypeEventOrganizer UserType = "event_organizer"
)

// Snapshot is a point-in-time copy of a widget session handed to readers.
type Snapshot struct {
	SessionID  string    `json:"sessionId"`
	PlaybookID string    `json:"playbookId"`
	UserType   UserType  `json:"userType"`
	Open       bool      `json:"open"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
}
