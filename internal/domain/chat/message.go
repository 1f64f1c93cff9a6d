package chat

import "time"

// MessageKind distinguishes the payload carried by a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindJob   MessageKind = "job"
)

// Message is a single chat entry. Only Seen and the embedded job status change
// after creation.
type Message struct {
	ID             string       `json:"_id"`
	ConversationID Ref          `json:"conversationId"`
	Sender         Ref          `json:"sender"`
	Kind           MessageKind  `json:"messageType,omitempty"`
	Text           string       `json:"text,omitempty"`
	Image          string       `json:"image,omitempty"`
	Job            *JobSnapshot `json:"jobDetails,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	Seen           bool         `json:"seen"`
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	if m.Job != nil {
		job := *m.Job
		m.Job = &job
	}
	return m
}

// JobID returns the embedded job identifier, if any.
func (m Message) JobID() string {
	if m.Job == nil {
		return ""
	}
	return m.Job.ID
}
