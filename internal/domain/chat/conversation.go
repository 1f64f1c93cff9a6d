package chat

import (
	"bytes"
	"encoding/json"
	"time"
)

// TaskRef points at the task post a conversation was opened for.
type TaskRef struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

func (t *TaskRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain TaskRef
		var doc plain
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		*t = TaskRef(doc)
		return nil
	}
	var id Ref
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = TaskRef{ID: id.String()}
	return nil
}

// LastMessage is the sidebar preview of a conversation.
type LastMessage struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Seen      bool      `json:"seen"`
}

// Conversation is a two-party thread tied to one task post.
type Conversation struct {
	ID           string       `json:"_id"`
	Participants []Ref        `json:"participants"`
	Task         TaskRef      `json:"postTask"`
	LastMessage  *LastMessage `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy.
func (c Conversation) Clone() Conversation {
	c.Participants = append([]Ref(nil), c.Participants...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		c.LastMessage = &last
	}
	return c
}

// Peer returns the participant that is not self.
func (c Conversation) Peer(self string) Ref {
	for _, p := range c.Participants {
		if p.String() != self {
			return p
		}
	}
	return ""
}

// Preview updates the last-message preview from msg.
func (c *Conversation) Preview(msg Message) {
	text := msg.Text
	if text == "" {
		switch {
		case msg.Job != nil:
			text = msg.Job.Title
		case msg.Image != "":
			text = "image"
		}
	}
	c.LastMessage = &LastMessage{Text: text, CreatedAt: msg.CreatedAt, Seen: msg.Seen}
}

// UnseenCounts maps conversation ids to unread message counts.
type UnseenCounts map[string]int

// Get returns the count for id.
func (u UnseenCounts) Get(id string) int {
	return u[id]
}

// Increment adds one unread message to id and returns the new count.
func (u UnseenCounts) Increment(id string) int {
	u[id]++
	return u[id]
}

// Reset zeroes id and returns the previous count.
func (u UnseenCounts) Reset(id string) int {
	prev := u[id]
	u[id] = 0
	return prev
}

// Total sums all counters.
func (u UnseenCounts) Total() int {
	total := 0
	for _, n := range u {
		total += n
	}
	return total
}

// Clone returns a copy, never nil.
func (u UnseenCounts) Clone() UnseenCounts {
	out := make(UnseenCounts, len(u))
	for k, v := range u {
		if v < 0 {
			v = 0
		}
		out[k] = v
	}
	return out
}
