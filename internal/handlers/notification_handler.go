package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/events"
	"github.com/itqan-learning/progress-service/internal/utils"
)

// maxBufferedNotifications bounds the buffer when the renderer stops
// polling; oldest entries are discarded first.
const maxBufferedNotifications = 100

// NotificationBuffer collects published events so the renderer can poll
// and show them as transient messages.
type NotificationBuffer struct {
	mu      sync.Mutex
	pending []events.NotificationEvent
	logger  utils.Logger
}

func NewNotificationBuffer(logger utils.Logger) *NotificationBuffer {
	return &NotificationBuffer{logger: logger}
}

// Run consumes the publisher's subscription until ctx is cancelled.
func (b *NotificationBuffer) Run(ctx context.Context, pub *events.GoChannelEventPublisher) error {
	msgs, err := pub.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgs {
			var event events.NotificationEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("Discarding undecodable notification", "error", err)
				msg.Ack()
				continue
			}
			b.add(event)
			msg.Ack()
		}
	}()
	return nil
}

func (b *NotificationBuffer) add(event events.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, event)
	if len(b.pending) > maxBufferedNotifications {
		b.pending = b.pending[len(b.pending)-maxBufferedNotifications:]
	}
}

// Drain returns and clears the pending notifications, oldest first.
func (b *NotificationBuffer) Drain() []events.NotificationEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

type NotificationHandler struct {
	BaseHandler
	buffer *NotificationBuffer
}

func NewNotificationHandler(buffer *NotificationBuffer, logger utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: NewBaseHandler(logger),
		buffer:      buffer,
	}
}

// List drains the buffered notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	notifications := h.buffer.Drain()
	if notifications == nil {
		notifications = []events.NotificationEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
