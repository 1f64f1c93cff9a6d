package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"taskchat/internal/app/chatsync"
	"taskchat/internal/domain/chat"
)

// ChatHandler exposes the sync controller to local clients.
type ChatHandler struct {
	Controller *chatsync.Controller
	Logger     *slog.Logger
}

type sendPayload struct {
	Text       string            `json:"text"`
	Image      string            `json:"image"`
	JobDetails *chat.JobSnapshot `json:"jobDetails"`
}

type jobStatusPayload struct {
	Status     string `json:"status" binding:"required"`
	PostTaskID string `json:"postTaskId"`
	AcceptTo   string `json:"acceptTo"`
}

// State returns the current snapshot.
func (h ChatHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

// Refresh reloads the conversation list and unseen counters.
func (h ChatHandler) Refresh(c *gin.Context) {
	if err := h.Controller.ListConversations(c.Request.Context()); err != nil {
		h.respondError(c, err, "refresh conversations")
		return
	}
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

// Select activates a listed conversation and loads its newest page.
func (h ChatHandler) Select(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	conv, ok := h.Controller.Conversation(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if err := h.Controller.SelectConversation(c.Request.Context(), conv); err != nil {
		h.respondError(c, err, "select conversation", "conversation_id", id)
		return
	}
	c.JSON(http.StatusOK, h.Controller.Snapshot())
}

// MarkRead clears a conversation's unseen counter.
func (h ChatHandler) MarkRead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.Controller.MarkConversationAsRead(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "mark conversation read", "conversation_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadOlder prepends the next page of the active conversation.
func (h ChatHandler) LoadOlder(c *gin.Context) {
	added, err := h.Controller.LoadMoreMessages(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load older messages")
		return
	}
	st := h.Controller.Snapshot()
	c.JSON(http.StatusOK, gin.H{"added": added, "page": st.Page, "has_more": st.HasMore})
}

// Send posts a message to the active conversation.
func (h ChatHandler) Send(c *gin.Context) {
	var req sendPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.Controller.SendMessage(c.Request.Context(), chatsync.SendInput{
		Text:  req.Text,
		Image: req.Image,
		Job:   req.JobDetails,
	})
	if err != nil {
		h.respondError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateJobStatus accepts, declines or cancels a job.
func (h ChatHandler) UpdateJobStatus(c *gin.Context) {
	var req jobStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	jobID := strings.TrimSpace(c.Param("id"))
	err := h.Controller.UpdateJobStatus(c.Request.Context(), chatsync.JobStatusInput{
		JobID:      jobID,
		Status:     req.Status,
		PostTaskID: req.PostTaskID,
		AcceptTo:   req.AcceptTo,
	})
	if err != nil {
		h.respondError(c, err, "update job status", "job_id", jobID)
		return
	}
	c.Status(http.StatusNoContent)
}

// Presence lists the identities reported online.
func (h ChatHandler) Presence(c *gin.Context) {
	online, err := h.Controller.Online(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load presence")
		return
	}
	if online == nil {
		online = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

func (h ChatHandler) respondError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, chatsync.ErrEmptyMessage),
		errors.Is(err, chatsync.ErrInvalidImage),
		errors.Is(err, chatsync.ErrInvalidJobStatus),
		errors.Is(err, chat.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chatsync.ErrNoActiveConversation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error(action+" failed", append(attrs, "error", err)...)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": action + " failed"})
	}
}

var _ ChatHTTP = ChatHandler{}
