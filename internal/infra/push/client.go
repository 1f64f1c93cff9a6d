package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"taskchat/internal/app/chatsync"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// Config describes the push endpoint.
type Config struct {
	URL            string
	UserID         string
	Token          string
	ReconnectDelay time.Duration
}

// Frame is the envelope of every push message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client keeps a websocket open to the push endpoint and dispatches frames to
// subscribers. Handlers run on the read goroutine, one frame at a time.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]map[uint64]chatsync.PushHandler
	nextID   uint64

	connected atomic.Bool
}

// NewClient validates cfg and returns a disconnected client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("push: url required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("push: invalid url: %w", err)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
		handlers: make(map[string]map[uint64]chatsync.PushHandler),
	}, nil
}

// Subscribe registers handler for event until the returned subscription is
// cancelled.
func (c *Client) Subscribe(event string, handler chatsync.PushHandler) chatsync.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]chatsync.PushHandler)
	}
	c.handlers[event][id] = handler
	return &subscription{client: c, event: event, id: id}
}

// Connected reports whether a websocket is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run dials the endpoint and reads frames until ctx is done, redialing after
// ReconnectDelay whenever the connection drops.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("push connection lost", "error", err, "retry_in", c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("push: dial: %w", err)
	}
	c.connected.Store(true)
	c.logger.Info("push connected", "url", c.cfg.URL, "user_id", c.cfg.UserID)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		c.connected.Store(false)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.Dispatch(ctx, data)
	}
}

// Dispatch decodes a frame and hands its data to the event's subscribers.
func (c *Client) Dispatch(ctx context.Context, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn("push frame dropped", "error", err)
		return
	}
	if frame.Event == "" {
		c.logger.Warn("push frame without event")
		return
	}
	c.mu.RLock()
	handlers := make([]chatsync.PushHandler, 0, len(c.handlers[frame.Event]))
	for _, h := range c.handlers[frame.Event] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()
	if len(handlers) == 0 {
		c.logger.Debug("push event without subscribers", "event", frame.Event)
		return
	}
	for _, h := range handlers {
		h(ctx, frame.Data)
	}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("push: invalid url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if c.cfg.UserID != "" {
		q := u.Query()
		q.Set("userId", c.cfg.UserID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) unsubscribe(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers[event], id)
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

type subscription struct {
	client *Client
	event  string
	id     uint64
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.unsubscribe(s.event, s.id)
	})
}

var _ chatsync.PushChannel = (*Client)(nil)
