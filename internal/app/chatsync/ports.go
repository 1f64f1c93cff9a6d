package chatsync

import (
	"context"
	"encoding/json"
	"io"

	"taskchat/internal/domain/chat"
)

// Push channel event names.
const (
	EventNewMessage      = "newMessage"
	EventJobStatusUpdate = "jobStatusUpdate"
	EventOnlineUsers     = "getOnlineUsers"
)

// ConversationList is the payload of the conversation listing endpoint.
type ConversationList struct {
	Conversations []chat.Conversation
	Unseen        chat.UnseenCounts
}

// MessagePage is one page of messages, newest first.
type MessagePage struct {
	Messages []chat.Message
	Page     int
	HasMore  bool
}

// SendRequest is posted to the send endpoint. Nil fields are sent as JSON null.
type SendRequest struct {
	Text       *string           `json:"text"`
	Image      *string           `json:"image"`
	JobDetails *chat.JobSnapshot `json:"jobDetails"`
}

// JobStatusRequest updates a job server-side.
type JobStatusRequest struct {
	Status     chat.JobStatus `json:"status"`
	PostTaskID string         `json:"postTaskId,omitempty"`
	AcceptTo   string         `json:"acceptTo,omitempty"`
}

// Backend is the REST API the controller synchronizes with.
type Backend interface {
	ListConversations(ctx context.Context) (ConversationList, error)
	ListMessages(ctx context.Context, conversationID string, page, limit int) (MessagePage, error)
	SendMessage(ctx context.Context, conversationID string, req SendRequest) (chat.Message, error)
	MarkMessageRead(ctx context.Context, messageID string) error
	MarkConversationRead(ctx context.Context, conversationID string) error
	UpdateJobStatus(ctx context.Context, jobID string, req JobStatusRequest) error
}

// PushHandler receives the raw data of a push event.
type PushHandler func(ctx context.Context, data json.RawMessage)

// Subscription is a registered push handler.
type Subscription interface {
	Unsubscribe()
}

// PushChannel delivers server-initiated events.
type PushChannel interface {
	Subscribe(event string, handler PushHandler) Subscription
}

// Inbox remembers processed push deliveries.
type Inbox interface {
	// Seen records key and reports whether it had been recorded before.
	Seen(ctx context.Context, key string) (bool, error)
}

// PresenceStore keeps the set of online identities.
type PresenceStore interface {
	Replace(ctx context.Context, userIDs []string) error
	Online(ctx context.Context) ([]string, error)
}

// Uploader stores image content and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}
