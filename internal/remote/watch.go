package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
)

// EventType describes a remote change notification.
type EventType string

const (
	EventUpsert EventType = "upsert"
	EventDelete EventType = "delete"
)

// DocEvent is one remote change notification delivered by the watch stream.
type DocEvent struct {
	Type EventType `json:"type"`
	Doc  Document  `json:"doc"`
}

// Subscription is a cancellable handle on a watch stream. Close releases
// the underlying connection deterministically; the events channel is closed
// when the stream ends for any reason.
type Subscription struct {
	conn   *websocket.Conn
	events chan DocEvent

	mu     sync.Mutex
	closed bool
}

// Events returns the stream of remote change notifications.
func (s *Subscription) Events() <-chan DocEvent {
	return s.events
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Watch subscribes to ongoing remote changes for one owner. The returned
// subscription delivers upsert and delete events until Close is called or
// the connection drops.
func (c *Client) Watch(ctx context.Context, uid string) (*Subscription, error) {
	header := http.Header{}
	if c.config.APIKey != "" {
		header.Set("X-Api-Key", c.config.APIKey)
	}
	if token := c.bearerToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.watchURL(uid), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("watch dial failed: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan DocEvent, 64),
	}
	go sub.readLoop(uid)

	return sub, nil
}

func (s *Subscription) readLoop(uid string) {
	defer close(s.events)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isClosed() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("watch stream closed unexpectedly",
					map[string]interface{}{"uid": uid, "error": err.Error()})
			}
			return
		}

		var event DocEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logging.Warn("invalid watch event, skipping",
				map[string]interface{}{"uid": uid, "error": err.Error()})
			continue
		}

		s.events <- event
	}
}

func (c *Client) watchURL(uid string) string {
	base := c.config.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.collectionPath(uid) + "/watch"
}
