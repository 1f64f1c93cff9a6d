package chatsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskchat/internal/app/policies"
	"taskchat/internal/domain/chat"
)

// DefaultPageSize is the number of messages requested per page.
const DefaultPageSize = 20

var (
	ErrEmptyMessage         = errors.New("chatsync: message is empty")
	ErrNoActiveConversation = errors.New("chatsync: no active conversation")
	ErrInvalidJobStatus     = errors.New("chatsync: invalid job status request")
	ErrBackendMissing       = errors.New("chatsync: backend required")
)

// Dependencies are the collaborators a Controller works with. Only Backend is
// required.
type Dependencies struct {
	Backend  Backend
	Push     PushChannel
	Notifier policies.Notifier
	Inbox    Inbox
	Presence PresenceStore
	Images   Uploader
	Logger   *slog.Logger
	PageSize int
	Now      func() time.Time
}

// State is a point-in-time copy of the controller state.
type State struct {
	Conversations []chat.Conversation `json:"conversations"`
	Unseen        chat.UnseenCounts   `json:"unseen"`
	Active        *chat.Conversation  `json:"active,omitempty"`
	Messages      []chat.Message      `json:"messages"`
	Page          int                 `json:"page"`
	HasMore       bool                `json:"has_more"`
	Loading       bool                `json:"loading"`
}

// Controller keeps the conversation list, the active conversation's messages
// and the unseen counters in sync with the backend and the push channel.
type Controller struct {
	backend  Backend
	push     PushChannel
	notifier policies.Notifier
	inbox    Inbox
	presence PresenceStore
	images   Uploader
	logger   *slog.Logger
	pageSize int
	now      func() time.Time

	mu            sync.Mutex
	conversations []chat.Conversation
	unseen        chat.UnseenCounts
	active        *chat.Conversation
	buffer        chat.Buffer
	page          int
	hasMore       bool
	loading       bool
	generation    uint64

	subsMu    sync.Mutex
	subs      []Subscription
	closeOnce sync.Once
}

// NewController validates deps and returns an idle controller.
func NewController(deps Dependencies) (*Controller, error) {
	if deps.Backend == nil {
		return nil, ErrBackendMissing
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		backend:  deps.Backend,
		push:     deps.Push,
		notifier: deps.Notifier,
		inbox:    deps.Inbox,
		presence: deps.Presence,
		images:   deps.Images,
		logger:   logger,
		pageSize: pageSize,
		now:      now,
		unseen:   chat.UnseenCounts{},
	}, nil
}

// ListConversations replaces the conversation list and the unseen counters
// with the backend's view. On failure the previous state is kept.
func (c *Controller) ListConversations(ctx context.Context) error {
	list, err := c.backend.ListConversations(ctx)
	if err != nil {
		c.fail(ctx, "Could not load conversations", "", err)
		return fmt.Errorf("list conversations: %w", err)
	}
	c.mu.Lock()
	c.conversations = cloneConversations(list.Conversations)
	c.unseen = list.Unseen.Clone()
	c.mu.Unlock()
	return nil
}

// refreshConversations reloads the list after a push event or a send. Local
// unseen counters are kept because they already account for pushed messages.
func (c *Controller) refreshConversations(ctx context.Context) {
	list, err := c.backend.ListConversations(ctx)
	if err != nil {
		c.fail(ctx, "Could not refresh conversations", "", err)
		return
	}
	c.mu.Lock()
	c.conversations = cloneConversations(list.Conversations)
	c.mu.Unlock()
}

// Conversation looks up a listed conversation by id.
func (c *Controller) Conversation(id string) (chat.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.ID == id {
			return conv.Clone(), true
		}
	}
	return chat.Conversation{}, false
}

// SelectConversation makes conv active, loads its first page and marks it
// read when it has unseen messages. A response that arrives after another
// conversation was selected is dropped.
func (c *Controller) SelectConversation(ctx context.Context, conv chat.Conversation) error {
	if strings.TrimSpace(conv.ID) == "" {
		return ErrNoActiveConversation
	}
	selected := conv.Clone()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.active = &selected
	c.buffer.Reset()
	c.page = 1
	c.hasMore = false
	c.loading = true
	unseen := c.unseen.Get(selected.ID)
	c.mu.Unlock()

	if unseen > 0 {
		_ = c.MarkConversationAsRead(ctx, selected.ID)
	}

	page, err := c.backend.ListMessages(ctx, selected.ID, 1, c.pageSize)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale message page", "conversation_id", selected.ID, "page", 1)
		return nil
	}
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.fail(ctx, "Could not load messages", selected.ID, err)
		return fmt.Errorf("load messages: %w", err)
	}
	c.buffer.PrependPage(page.Messages)
	c.page = pageOr(page.Page, 1)
	c.hasMore = page.HasMore
	c.mu.Unlock()
	return nil
}

// LoadMoreMessages prepends the next older page. It is a no-op when nothing
// is active, no pages remain or a load is already running. It returns the
// number of messages added.
func (c *Controller) LoadMoreMessages(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.active == nil || !c.hasMore || c.loading {
		c.mu.Unlock()
		return 0, nil
	}
	c.loading = true
	gen := c.generation
	id := c.active.ID
	next := c.page + 1
	c.mu.Unlock()

	page, err := c.backend.ListMessages(ctx, id, next, c.pageSize)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale message page", "conversation_id", id, "page", next)
		return 0, nil
	}
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.fail(ctx, "Could not load older messages", id, err)
		return 0, fmt.Errorf("load messages page %d: %w", next, err)
	}
	added := c.buffer.PrependPage(page.Messages)
	c.page = pageOr(page.Page, next)
	c.hasMore = page.HasMore
	c.mu.Unlock()
	return added, nil
}

// MarkConversationAsRead clears the unseen counter of id. The backend is only
// called when the counter is nonzero, so repeated calls are harmless.
func (c *Controller) MarkConversationAsRead(ctx context.Context, id string) error {
	c.mu.Lock()
	count := c.unseen.Get(id)
	c.mu.Unlock()
	if count <= 0 {
		return nil
	}
	if err := c.backend.MarkConversationRead(ctx, id); err != nil {
		c.fail(ctx, "Could not mark conversation as read", id, err)
		return fmt.Errorf("mark conversation read: %w", err)
	}
	c.mu.Lock()
	c.unseen.Reset(id)
	for i := range c.conversations {
		if c.conversations[i].ID == id && c.conversations[i].LastMessage != nil {
			c.conversations[i].LastMessage.Seen = true
		}
	}
	c.mu.Unlock()
	return nil
}

// SendInput is the content of an outgoing message.
type SendInput struct {
	Text  string
	Image string
	Job   *chat.JobSnapshot
}

// SendMessage posts a message to the active conversation. The message shown
// is the one returned by the backend, appended only after it was accepted.
func (c *Controller) SendMessage(ctx context.Context, in SendInput) (chat.Message, error) {
	text := strings.TrimSpace(in.Text)
	image := strings.TrimSpace(in.Image)
	if text == "" && image == "" && in.Job == nil {
		return chat.Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return chat.Message{}, ErrNoActiveConversation
	}
	id := c.active.ID
	c.mu.Unlock()

	if image != "" && c.images != nil && isDataURI(image) {
		url, err := c.uploadImage(ctx, id, image)
		if err != nil {
			if errors.Is(err, ErrInvalidImage) {
				return chat.Message{}, err
			}
			c.fail(ctx, "Could not upload image", id, err)
			return chat.Message{}, fmt.Errorf("upload image: %w", err)
		}
		image = url
	}

	req := SendRequest{}
	if text != "" {
		req.Text = &text
	}
	if image != "" {
		req.Image = &image
	}
	if in.Job != nil {
		job := *in.Job
		if job.Status == "" {
			job.Status = chat.JobPending
		}
		req.JobDetails = &job
	}

	msg, err := c.backend.SendMessage(ctx, id, req)
	if err != nil {
		c.fail(ctx, "Could not send message", id, err)
		return chat.Message{}, fmt.Errorf("send message: %w", err)
	}

	c.mu.Lock()
	if c.active != nil && c.active.ID == id && !c.buffer.Contains(msg.ID) {
		c.buffer.Append(msg)
	}
	c.mu.Unlock()

	c.refreshConversations(ctx)
	return msg.Clone(), nil
}

// JobStatusInput is a local accept, decline or cancel action on a job.
type JobStatusInput struct {
	JobID      string
	Status     string
	PostTaskID string
	AcceptTo   string
}

// UpdateJobStatus sends a job transition to the backend and applies it to the
// loaded messages once accepted.
func (c *Controller) UpdateJobStatus(ctx context.Context, in JobStatusInput) error {
	jobID := strings.TrimSpace(in.JobID)
	if jobID == "" {
		return fmt.Errorf("%w: job id required", ErrInvalidJobStatus)
	}
	status, err := chat.ParseJobStatus(in.Status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJobStatus, err)
	}

	c.mu.Lock()
	var conversationID string
	if c.active != nil {
		conversationID = c.active.ID
	}
	job, loaded := c.buffer.FindJob(jobID)
	c.mu.Unlock()
	if loaded && !job.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", chat.ErrInvalidTransition, job.Status, status)
	}

	postTask := strings.TrimSpace(in.PostTaskID)
	if postTask == "" && loaded {
		postTask = job.PostTask.String()
	}
	req := JobStatusRequest{Status: status, PostTaskID: postTask, AcceptTo: strings.TrimSpace(in.AcceptTo)}
	if err := c.backend.UpdateJobStatus(ctx, jobID, req); err != nil {
		c.fail(ctx, "Could not update job", conversationID, err)
		return fmt.Errorf("update job status: %w", err)
	}

	c.mu.Lock()
	_, applyErr := c.buffer.ApplyJobStatus(jobID, status)
	c.mu.Unlock()
	if applyErr != nil {
		c.logger.Warn("job status not applied locally", "job_id", jobID, "status", status, "error", applyErr)
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Conversations: cloneConversations(c.conversations),
		Unseen:        c.unseen.Clone(),
		Messages:      c.buffer.Messages(),
		Page:          c.page,
		HasMore:       c.hasMore,
		Loading:       c.loading,
	}
	if c.active != nil {
		active := c.active.Clone()
		st.Active = &active
	}
	return st
}

// Online returns the identities the push channel last reported online.
func (c *Controller) Online(ctx context.Context) ([]string, error) {
	if c.presence == nil {
		return nil, nil
	}
	return c.presence.Online(ctx)
}

func (c *Controller) fail(ctx context.Context, text, conversationID string, err error) {
	c.logger.Error(text, "conversation_id", conversationID, "error", err)
	c.notify(ctx, policies.Notification{Level: policies.LevelError, Text: text, ConversationID: conversationID})
}

func (c *Controller) notify(ctx context.Context, n policies.Notification) {
	if c.notifier == nil {
		return
	}
	if n.At.IsZero() {
		n.At = c.now().UTC()
	}
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.Warn("notification not delivered", "text", n.Text, "error", err)
	}
}

func cloneConversations(in []chat.Conversation) []chat.Conversation {
	out := make([]chat.Conversation, 0, len(in))
	for _, conv := range in {
		out = append(out, conv.Clone())
	}
	return out
}

func pageOr(page, def int) int {
	if page <= 0 {
		return def
	}
	return page
}
