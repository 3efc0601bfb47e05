package ws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSEClient writes session events as a text/event-stream for clients that
// cannot upgrade to websocket.
type SSEClient struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	log     *slog.Logger
	seq     int
	closed  bool
}

func NewSSEClient(w io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	return &SSEClient{w: w, flusher: flusher, log: logger}
}

// Send frames payload as a numbered "session" event. Multi-line payloads get
// one data line each.
func (c *SSEClient) Send(payload []byte) error {
	var b strings.Builder
	c.mu.Lock()
	c.seq++
	fmt.Fprintf(&b, "id: %d\nevent: session\n", c.seq)
	c.mu.Unlock()
	for _, line := range strings.Split(string(payload), "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return c.write(b.String())
}

// Serve sends a comment frame every interval until ctx ends or a write fails.
func (c *SSEClient) Serve(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.write(": keepalive\n\n"); err != nil {
				return
			}
		}
	}
}

func (c *SSEClient) write(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	if _, err := io.WriteString(c.w, frame); err != nil {
		c.closed = true
		c.log.Warn("session event not delivered", "transport", "sse", "error", err)
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *SSEClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *SSEClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
