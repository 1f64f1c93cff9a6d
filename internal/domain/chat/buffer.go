package chat

// Buffer holds the loaded messages of one conversation, oldest first.
type Buffer struct {
	items []Message
}

// Reset drops every loaded message.
func (b *Buffer) Reset() {
	b.items = nil
}

// Len returns the number of loaded messages.
func (b *Buffer) Len() int {
	return len(b.items)
}

// PrependPage merges an older page. The backend returns pages newest first, so
// the page is reversed before it is placed in front of the loaded messages.
// Messages that are already loaded are skipped. It returns the number added.
func (b *Buffer) PrependPage(newestFirst []Message) int {
	if len(newestFirst) == 0 {
		return 0
	}
	merged := make([]Message, 0, len(newestFirst)+len(b.items))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		if b.Contains(newestFirst[i].ID) {
			continue
		}
		merged = append(merged, newestFirst[i].Clone())
	}
	added := len(merged)
	merged = append(merged, b.items...)
	b.items = merged
	return added
}

// Append adds a message at the tail.
func (b *Buffer) Append(msg Message) {
	b.items = append(b.items, msg.Clone())
}

// Contains reports whether a message with id is loaded.
func (b *Buffer) Contains(id string) bool {
	if id == "" {
		return false
	}
	for _, m := range b.items {
		if m.ID == id {
			return true
		}
	}
	return false
}

// FindJob returns the embedded job with jobID, if loaded.
func (b *Buffer) FindJob(jobID string) (JobSnapshot, bool) {
	for _, m := range b.items {
		if m.Job != nil && m.Job.ID == jobID {
			return *m.Job, true
		}
	}
	return JobSnapshot{}, false
}

// ApplyJobStatus transitions every loaded job whose id matches jobID. Messages
// without a matching job are left untouched. It returns the number of messages
// that changed and the first transition error encountered.
func (b *Buffer) ApplyJobStatus(jobID string, status JobStatus) (int, error) {
	if jobID == "" {
		return 0, nil
	}
	changed := 0
	var firstErr error
	for i := range b.items {
		job := b.items[i].Job
		if job == nil || job.ID != jobID {
			continue
		}
		next := *job
		ok, err := next.Transition(status)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			b.items[i].Job = &next
			changed++
		}
	}
	return changed, firstErr
}

// Messages returns a copy of the loaded messages, oldest first.
func (b *Buffer) Messages() []Message {
	out := make([]Message, 0, len(b.items))
	for _, m := range b.items {
		out = append(out, m.Clone())
	}
	return out
}

// First returns the oldest loaded message.
func (b *Buffer) First() (Message, bool) {
	if len(b.items) == 0 {
		return Message{}, false
	}
	return b.items[0].Clone(), true
}
