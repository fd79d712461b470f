package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Change is a task mutation announced by the server.
type Change struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

type feedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const feedPingPeriod = 30 * time.Second

// Watch streams the current user's task changes to fn until ctx is done
// or the connection drops. It returns nil when ctx ends the watch.
func (c *Client) Watch(ctx context.Context, fn func(Change)) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	endpoint, err := c.t.wsURL("/api/ws", url.Values{
		"access_token": {s.AccessToken},
		"apikey":       {c.t.key},
	})
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to open change feed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteJSON(feedMessage{Type: "ping"}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("change feed: %w", err)
		}
		// The server may batch several messages into one frame.
		for _, line := range bytes.Split(data, []byte("\n")) {
			change, err := parseChange(line)
			if err != nil {
				c.t.log.Warn().Err(err).Msg("skipping feed message")
				continue
			}
			if change != nil {
				fn(*change)
			}
		}
	}
}

var errEmptyMessage = errors.New("empty message")

func parseChange(line []byte) (*Change, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, errEmptyMessage
	}
	var msg feedMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, err
	}
	if msg.Type != "tasks_changed" {
		return nil, nil
	}
	var change Change
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		return nil, err
	}
	return &change, nil
}
