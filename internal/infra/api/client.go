package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskchat/internal/app/chatsync"
	"taskchat/internal/domain/chat"
)

const DefaultBaseURL = "http://localhost:5000/api"

// ErrUnsuccessful is returned when the backend answers with `success: false`.
var ErrUnsuccessful = errors.New("api: request unsuccessful")

// StatusError carries a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the marketplace REST backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	Logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://example.com/api.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		c.BaseURL = strings.TrimSuffix(raw, "/")
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.Token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.HTTPClient = &http.Client{Timeout: d}
	}
}

// WithLogger attaches a logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// New builds a client. Requests have no timeout unless one is configured.
func New(opts ...Option) *Client {
	client := &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
}

func (e envelope) ok() bool {
	return e.Success == nil || *e.Success
}

type conversationsResponse struct {
	envelope
	Conversations  []chat.Conversation `json:"conversations"`
	UnseenMessages map[string]int      `json:"unseenMessages"`
}

type messagesResponse struct {
	envelope
	Messages   []chat.Message `json:"messages"`
	Pagination struct {
		Page    int  `json:"page"`
		HasMore bool `json:"hasMore"`
	} `json:"pagination"`
}

type messageResponse struct {
	envelope
	Message chat.Message `json:"message"`
}

// ListConversations fetches every conversation of the current identity.
func (c *Client) ListConversations(ctx context.Context) (chatsync.ConversationList, error) {
	var resp conversationsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return chatsync.ConversationList{}, err
	}
	if !resp.ok() {
		return chatsync.ConversationList{}, unsuccessful(resp.envelope)
	}
	return chatsync.ConversationList{
		Conversations: resp.Conversations,
		Unseen:        chat.UnseenCounts(resp.UnseenMessages).Clone(),
	}, nil
}

// ListMessages fetches one page of a conversation, newest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string, page, limit int) (chatsync.MessagePage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	path := "/messages/" + url.PathEscape(conversationID) + "?" + query.Encode()

	var resp messagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return chatsync.MessagePage{}, err
	}
	if !resp.ok() {
		return chatsync.MessagePage{}, unsuccessful(resp.envelope)
	}
	return chatsync.MessagePage{
		Messages: resp.Messages,
		Page:     resp.Pagination.Page,
		HasMore:  resp.Pagination.HasMore,
	}, nil
}

// SendMessage posts a message and returns the stored copy.
func (c *Client) SendMessage(ctx context.Context, conversationID string, req chatsync.SendRequest) (chat.Message, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(conversationID), req, &resp); err != nil {
		return chat.Message{}, err
	}
	if !resp.ok() {
		return chat.Message{}, unsuccessful(resp.envelope)
	}
	return resp.Message, nil
}

// MarkMessageRead acknowledges a single message.
func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPut, "/messages/mark-as-read/"+url.PathEscape(messageID), nil, nil)
}

// MarkConversationRead acknowledges every message of a conversation.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	var resp envelope
	if err := c.do(ctx, http.MethodPut, "/conversations/"+url.PathEscape(conversationID)+"/read", nil, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return unsuccessful(resp)
	}
	return nil
}

// UpdateJobStatus records an accept, reject or cancel on a job.
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, req chatsync.JobStatusRequest) error {
	var resp envelope
	if err := c.do(ctx, http.MethodPut, "/jobs/"+url.PathEscape(jobID)+"/status", req, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return unsuccessful(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logError(method, path, err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		c.logError(method, path, statusErr)
		return statusErr
	}
	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) logError(method, path string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error("api request failed", "method", method, "path", path, "error", err)
}

func unsuccessful(e envelope) error {
	if e.Message == "" {
		return ErrUnsuccessful
	}
	return fmt.Errorf("%w: %s", ErrUnsuccessful, e.Message)
}

var _ chatsync.Backend = (*Client)(nil)
