package policies

import (
	"context"
	"time"
)

// Level classifies a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level          Level
	Text           string
	ConversationID string
	At             time.Time
}

// Notifier surfaces transient notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
