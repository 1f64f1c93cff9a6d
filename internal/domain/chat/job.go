package chat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("chat: invalid job status transition")
	ErrUnknownJobStatus  = errors.New("chat: unknown job status")
)

// JobStatus is the lifecycle state of a job offered inside a conversation.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobAccepted  JobStatus = "accepted"
	JobRejected  JobStatus = "rejected"
	JobCancelled JobStatus = "cancelled"
)

// ParseJobStatus normalizes a raw status string.
func ParseJobStatus(raw string) (JobStatus, error) {
	switch JobStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case JobPending:
		return JobPending, nil
	case JobAccepted:
		return JobAccepted, nil
	case JobRejected:
		return JobRejected, nil
	case JobCancelled, "canceled":
		return JobCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownJobStatus, raw)
	}
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobAccepted || s == JobRejected || s == JobCancelled
}

// CanTransition reports whether s may move to next. Re-applying the current
// status is allowed and has no effect.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s == next {
		return true
	}
	current := s
	if current == "" {
		current = JobPending
	}
	return current == JobPending && next.Terminal()
}

// JobSnapshot is the denormalized copy of a job carried by a job message.
type JobSnapshot struct {
	ID       string    `json:"_id"`
	Title    string    `json:"title"`
	Price    float64   `json:"price"`
	Date     string    `json:"date,omitempty"`
	Time     string    `json:"time,omitempty"`
	Duration string    `json:"duration,omitempty"`
	PostTask Ref       `json:"postTask,omitempty"`
	Status   JobStatus `json:"status"`
}

// Transition moves the snapshot to next. It returns false when the status is
// already next.
func (j *JobSnapshot) Transition(next JobStatus) (bool, error) {
	if !j.Status.CanTransition(next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	if j.Status == next {
		return false, nil
	}
	j.Status = next
	return true, nil
}

// JobStatusEvent is pushed when the other party acts on a job.
type JobStatusEvent struct {
	JobID          string `json:"jobId"`
	Status         string `json:"status"`
	ConversationID Ref    `json:"conversationId"`
	Message        string `json:"message,omitempty"`
}
