package http

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/notification"
)

// NotificationHandler keeps one live feed per user for the lifetime of the
// process. The feed backs both the SSE stream and the read-state mutations,
// so optimistic updates land in the same state the stream serves.
type NotificationHandler struct {
	stream *notification.Stream

	mu    sync.Mutex
	feeds map[string]*notification.Feed
}

func NewNotificationHandler(stream *notification.Stream) *NotificationHandler {
	return &NotificationHandler{stream: stream, feeds: make(map[string]*notification.Feed)}
}

func (h *NotificationHandler) feed(userID string) (*notification.Feed, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[userID]; ok {
		return f, nil
	}
	f, err := h.stream.Open(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	h.feeds[userID] = f
	return f, nil
}

// Close shuts every open feed; called on server shutdown.
func (h *NotificationHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.feeds {
		f.Close()
	}
	h.feeds = make(map[string]*notification.Feed)
}

type feedPayload struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// GET /v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	f, err := h.feed(currentActor(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedPayload{Notifications: f.Notifications(), UnreadCount: f.UnreadCount()})
}

// GET /v1/notifications/stream
// Server-sent events, one full snapshot per delivery, until the client
// disconnects.
func (h *NotificationHandler) Stream(c *gin.Context) {
	f, err := h.feed(currentActor(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Writer.Header().Set("Cache-Control", "no-cache")

	updates, stop := f.Watch()
	defer stop()

	send := func() {
		c.SSEvent("notifications", feedPayload{
			Notifications: f.Notifications(),
			UnreadCount:   f.UnreadCount(),
		})
	}
	send()
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case <-updates:
			send()
			return true
		}
	})
}

// POST /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	f, err := h.feed(currentActor(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := f.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedPayload{Notifications: f.Notifications(), UnreadCount: f.UnreadCount()})
}

// POST /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	f, err := h.feed(currentActor(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := f.MarkAllAsRead(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedPayload{Notifications: f.Notifications(), UnreadCount: f.UnreadCount()})
}
