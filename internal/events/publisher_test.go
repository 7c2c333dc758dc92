package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoChannelPublisherRoundTrip(t *testing.T) {
	pub := NewGoChannelEventPublisher(PublisherConfig{
		TopicName:  "notifications",
		BufferSize: 16,
		Logger:     slog.Default(),
	})
	t.Cleanup(func() { pub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := pub.Subscribe(ctx)
	require.NoError(t, err)

	event := NewChapterCompletedEvent(0, "Chapter 1: Basics", 4, 5)
	require.NoError(t, pub.PublishNotificationEvent(ctx, event))

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventChapterCompleted), msg.Metadata.Get("event_type"))

		var got NotificationEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, EventChapterCompleted, got.Type)
		assert.Equal(t, "progress-service", got.Source)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}

func TestEventConstructorsFillEnvelope(t *testing.T) {
	event := NewSessionIdleWarningEvent("sess-1", 5*time.Minute, time.Now())

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventSessionIdleWarning, event.Type)
	assert.Equal(t, "progress-service", event.Source)
	assert.Equal(t, "1.0", event.Version)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)

	payload, ok := event.Data.(SessionIdleEvent)
	require.True(t, ok)
	assert.Equal(t, "sess-1", payload.SessionID)
}

func TestMockPublisherFiltersByType(t *testing.T) {
	mock := NewMockEventPublisher()
	ctx := context.Background()

	require.NoError(t, mock.PublishNotificationEvent(ctx, NewProgressSaveFailedEvent("s", "quota")))
	require.NoError(t, mock.PublishNotificationEvent(ctx, NewProgressResetEvent("s")))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(EventProgressSaveFail), 1)
	assert.Empty(t, mock.EventsOfType(EventChapterCompleted))

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
