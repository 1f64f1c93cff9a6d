package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"taskchat/internal/app/policies"
	"taskchat/internal/domain/chat"
)

var errBackendDown = errors.New("backend down")

type call struct {
	Method string
	Target string
	Page   int
	Body   any
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call

	list     ConversationList
	listErr  error
	pages    map[string][]MessagePage
	pagesErr error
	sendResp chat.Message
	sendErr  error
	readErr  error
	jobErr   error

	// gate, when set, blocks ListMessages for the given conversation until
	// the channel is closed.
	gate map[string]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pages: map[string][]MessagePage{}, gate: map[string]chan struct{}{}}
}

func (b *fakeBackend) record(c call) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
}

func (b *fakeBackend) callsTo(method string) []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []call
	for _, c := range b.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) ListConversations(context.Context) (ConversationList, error) {
	b.record(call{Method: "ListConversations"})
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return ConversationList{}, b.listErr
	}
	return b.list, nil
}

func (b *fakeBackend) ListMessages(_ context.Context, conversationID string, page, _ int) (MessagePage, error) {
	b.record(call{Method: "ListMessages", Target: conversationID, Page: page})
	b.mu.Lock()
	gate := b.gate[conversationID]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pagesErr != nil {
		return MessagePage{}, b.pagesErr
	}
	pages := b.pages[conversationID]
	if page < 1 || page > len(pages) {
		return MessagePage{Page: page}, nil
	}
	return pages[page-1], nil
}

func (b *fakeBackend) SendMessage(_ context.Context, conversationID string, req SendRequest) (chat.Message, error) {
	b.record(call{Method: "SendMessage", Target: conversationID, Body: req})
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return chat.Message{}, b.sendErr
	}
	return b.sendResp, nil
}

func (b *fakeBackend) MarkMessageRead(_ context.Context, messageID string) error {
	b.record(call{Method: "MarkMessageRead", Target: messageID})
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readErr
}

func (b *fakeBackend) MarkConversationRead(_ context.Context, conversationID string) error {
	b.record(call{Method: "MarkConversationRead", Target: conversationID})
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readErr
}

func (b *fakeBackend) UpdateJobStatus(_ context.Context, jobID string, req JobStatusRequest) error {
	b.record(call{Method: "UpdateJobStatus", Target: jobID, Body: req})
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jobErr
}

type fakePush struct {
	mu       sync.Mutex
	handlers map[string]map[int]PushHandler
	next     int
	removed  int
}

func newFakePush() *fakePush {
	return &fakePush{handlers: map[string]map[int]PushHandler{}}
}

func (p *fakePush) Subscribe(event string, h PushHandler) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	if p.handlers[event] == nil {
		p.handlers[event] = map[int]PushHandler{}
	}
	p.handlers[event][p.next] = h
	return &fakeSub{push: p, event: event, id: p.next}
}

func (p *fakePush) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers[event])
}

func (p *fakePush) emit(ctx context.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	hs := make([]PushHandler, 0, len(p.handlers[event]))
	for _, h := range p.handlers[event] {
		hs = append(hs, h)
	}
	p.mu.Unlock()
	for _, h := range hs {
		h(ctx, data)
	}
}

type fakeSub struct {
	push  *fakePush
	event string
	id    int
}

func (s *fakeSub) Unsubscribe() {
	s.push.mu.Lock()
	defer s.push.mu.Unlock()
	if _, ok := s.push.handlers[s.event][s.id]; ok {
		delete(s.push.handlers[s.event], s.id)
		s.push.removed++
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []policies.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note policies.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, note)
	return nil
}

func (n *recordingNotifier) all() []policies.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]policies.Notification(nil), n.items...)
}

type setInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (i *setInbox) Seen(_ context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = map[string]bool{}
	}
	if i.seen[key] {
		return true, nil
	}
	i.seen[key] = true
	return false, nil
}

type listPresence struct {
	ids []string
}

func (p *listPresence) Replace(_ context.Context, ids []string) error {
	p.ids = append([]string(nil), ids...)
	return nil
}

func (p *listPresence) Online(context.Context) ([]string, error) {
	return append([]string(nil), p.ids...), nil
}

type memUploader struct {
	key         string
	contentType string
	body        []byte
}

func (u *memUploader) Upload(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return "https://cdn.example.test/" + key, nil
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msgAt(id, conversationID string, minute int) chat.Message {
	return chat.Message{
		ID:             id,
		ConversationID: chat.Ref(conversationID),
		Sender:         "u2",
		Kind:           chat.KindText,
		Text:           fmt.Sprintf("text %s", id),
		CreatedAt:      baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

// newestFirst builds a page of messages for minutes hi down to lo.
func newestFirst(conversationID string, hi, lo int) []chat.Message {
	var out []chat.Message
	for m := hi; m >= lo; m-- {
		out = append(out, msgAt(fmt.Sprintf("%s-m%d", conversationID, m), conversationID, m))
	}
	return out
}
