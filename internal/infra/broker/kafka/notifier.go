package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskchat/internal/app/policies"
)

// NotificationRecord is the JSON value written for each notification.
type NotificationRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Level          string    `json:"level"`
	Text           string    `json:"text"`
	ConversationID string    `json:"conversation_id,omitempty"`
	At             time.Time `json:"at"`
}

// Notifier publishes notifications to a topic, keyed by conversation so that
// records of one conversation stay ordered.
type Notifier struct {
	Producer *Producer
	Topic    string
	UserID   string
}

func (n Notifier) Notify(ctx context.Context, note policies.Notification) error {
	at := note.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec := NotificationRecord{
		ID:             uuid.NewString(),
		UserID:         n.UserID,
		Level:          string(note.Level),
		Text:           note.Text,
		ConversationID: note.ConversationID,
		At:             at,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kafka: marshal notification: %w", err)
	}
	key := note.ConversationID
	if key == "" {
		key = n.UserID
	}
	headers := map[string]string{"content-type": "application/json", "level": rec.Level}
	if err := n.Producer.Publish(ctx, n.Topic, key, payload, headers); err != nil {
		return fmt.Errorf("kafka: publish notification: %w", err)
	}
	return nil
}

var _ policies.Notifier = Notifier{}
