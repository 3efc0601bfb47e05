package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/splax/cornerstone/internal/domain"
)

// SessionEvents opens the session-change stream. The channel is closed when ctx
// ends or the connection drops; there is no reconnect.
func (c *Client) SessionEvents(ctx context.Context) (<-chan domain.SessionEvent, error) {
	endpoint := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/auth/events"
	header := http.Header{}
	if token := c.Session().AccessToken; token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
		}
		return nil, fmt.Errorf("dial session events: %w", err)
	}

	events := make(chan domain.SessionEvent, 8)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(events)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event domain.SessionEvent
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
