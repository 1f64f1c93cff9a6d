package chatsync

import (
	"context"
	"encoding/json"
	"fmt"

	"taskchat/internal/app/policies"
	"taskchat/internal/domain/chat"
)

// Start registers the push handlers. Calling Start again after Close has no
// effect.
func (c *Controller) Start(ctx context.Context) {
	if c.push == nil {
		return
	}
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subs != nil {
		return
	}
	c.subs = []Subscription{
		c.push.Subscribe(EventNewMessage, c.HandleNewMessage),
		c.push.Subscribe(EventJobStatusUpdate, c.HandleJobStatusUpdate),
		c.push.Subscribe(EventOnlineUsers, c.HandleOnlineUsers),
	}
	c.logger.Info("push handlers registered", "count", len(c.subs))
}

// Close removes every push handler registered by Start.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.subsMu.Lock()
		subs := c.subs
		c.subs = []Subscription{}
		c.subsMu.Unlock()
		for _, sub := range subs {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	})
}

// HandleNewMessage applies a pushed message. A message for the active
// conversation is appended and acknowledged; any other bumps that
// conversation's unseen counter.
func (c *Controller) HandleNewMessage(ctx context.Context, data json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("malformed push message", "event", EventNewMessage, "error", err)
		return
	}
	if c.duplicate(ctx, EventNewMessage, msg.ID) {
		return
	}
	conversationID := msg.ConversationID.String()

	c.mu.Lock()
	if c.active != nil && c.active.ID == conversationID {
		msg.Seen = true
		if !c.buffer.Contains(msg.ID) {
			c.buffer.Append(msg)
		}
		for i := range c.conversations {
			if c.conversations[i].ID == conversationID {
				c.conversations[i].Preview(msg)
			}
		}
		c.mu.Unlock()

		if msg.ID == "" {
			return
		}
		if err := c.backend.MarkMessageRead(ctx, msg.ID); err != nil {
			c.logger.Warn("read receipt failed", "message_id", msg.ID, "conversation_id", conversationID, "error", err)
		}
		return
	}
	count := c.unseen.Increment(conversationID)
	c.mu.Unlock()

	c.logger.Debug("unseen message", "conversation_id", conversationID, "unseen", count)
	c.refreshConversations(ctx)
}

// HandleJobStatusUpdate announces a job transition and applies it to the
// loaded messages when its conversation is active.
func (c *Controller) HandleJobStatusUpdate(ctx context.Context, data json.RawMessage) {
	var ev chat.JobStatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Warn("malformed push message", "event", EventJobStatusUpdate, "error", err)
		return
	}
	status, err := chat.ParseJobStatus(ev.Status)
	if err != nil {
		c.logger.Warn("unknown job status pushed", "job_id", ev.JobID, "status", ev.Status)
		c.refreshConversations(ctx)
		return
	}
	conversationID := ev.ConversationID.String()

	text := ev.Message
	if text == "" {
		text = fmt.Sprintf("Job %s", status)
	}
	c.notify(ctx, policies.Notification{Level: levelFor(status), Text: text, ConversationID: conversationID})

	c.mu.Lock()
	if c.active != nil && c.active.ID == conversationID {
		changed, err := c.buffer.ApplyJobStatus(ev.JobID, status)
		if err != nil {
			c.logger.Warn("job status not applied", "job_id", ev.JobID, "status", status, "error", err)
		} else {
			c.logger.Debug("job status applied", "job_id", ev.JobID, "status", status, "messages", changed)
		}
	}
	c.mu.Unlock()

	c.refreshConversations(ctx)
}

// HandleOnlineUsers stores the pushed set of online identities.
func (c *Controller) HandleOnlineUsers(ctx context.Context, data json.RawMessage) {
	if c.presence == nil {
		return
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		c.logger.Warn("malformed push message", "event", EventOnlineUsers, "error", err)
		return
	}
	if err := c.presence.Replace(ctx, ids); err != nil {
		c.logger.Warn("presence update failed", "error", err)
	}
}

func (c *Controller) duplicate(ctx context.Context, event, id string) bool {
	if c.inbox == nil || id == "" {
		return false
	}
	seen, err := c.inbox.Seen(ctx, event+":"+id)
	if err != nil {
		c.logger.Warn("inbox check failed", "event", event, "id", id, "error", err)
		return false
	}
	if seen {
		c.logger.Debug("duplicate push delivery dropped", "event", event, "id", id)
	}
	return seen
}

func levelFor(status chat.JobStatus) policies.Level {
	switch status {
	case chat.JobAccepted:
		return policies.LevelSuccess
	case chat.JobRejected, chat.JobCancelled:
		return policies.LevelError
	default:
		return policies.LevelInfo
	}
}
