package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watchServer upgrades /watch requests and feeds the given frames to the
// subscriber, then blocks until the client goes away.
func watchServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWatchDeliversEvents(t *testing.T) {
	server := watchServer(t, []string{
		`{"type":"upsert","doc":{"id":"m1","name":"lunch","updatedAtMs":100}}`,
		`{"type":"delete","doc":{"id":"m2"}}`,
	})
	defer server.Close()

	c := NewClient(&Config{BaseURL: server.URL})
	sub, err := c.Watch(context.Background(), "uid-1")
	require.NoError(t, err)
	defer sub.Close()

	first := receiveEvent(t, sub)
	assert.Equal(t, EventUpsert, first.Type)
	assert.Equal(t, "m1", first.Doc.ID)
	assert.Equal(t, "lunch", first.Doc.Name)

	second := receiveEvent(t, sub)
	assert.Equal(t, EventDelete, second.Type)
	assert.Equal(t, "m2", second.Doc.ID)
}

func TestWatchSkipsMalformedFrames(t *testing.T) {
	server := watchServer(t, []string{
		`{not json`,
		`{"type":"upsert","doc":{"id":"m1"}}`,
	})
	defer server.Close()

	c := NewClient(&Config{BaseURL: server.URL})
	sub, err := c.Watch(context.Background(), "uid-1")
	require.NoError(t, err)
	defer sub.Close()

	event := receiveEvent(t, sub)
	assert.Equal(t, "m1", event.Doc.ID, "the malformed frame is skipped, not fatal")
}

func TestWatchCloseEndsEventStream(t *testing.T) {
	server := watchServer(t, nil)
	defer server.Close()

	c := NewClient(&Config{BaseURL: server.URL})
	sub, err := c.Watch(context.Background(), "uid-1")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "Close is idempotent")

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel must close after Close")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}

func TestWatchDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(&Config{BaseURL: server.URL})
	_, err := c.Watch(context.Background(), "uid-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch dial failed")
}

func receiveEvent(t *testing.T, sub *Subscription) DocEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "stream ended before delivering the event")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a watch event")
		return DocEvent{}
	}
}
