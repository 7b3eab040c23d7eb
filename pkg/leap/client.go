package leap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/servo"
)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Client keeps the latest frame streamed by the Leap Motion service.
// CurrentFrame never blocks; it returns the last frame received on the
// live connection.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger logrus.FieldLogger

	mu      sync.RWMutex
	frame   servo.Frame
	hasData bool
	frames  uint64
}

// NewClient creates a client for the service at url. A nil logger uses
// the logrus standard logger.
func NewClient(url string, logger logrus.FieldLogger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 2 * time.Second},
		logger: logger.WithField("sensor", url),
	}
}

// CurrentFrame returns the most recent frame.
func (c *Client) CurrentFrame() (servo.Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasData {
		return servo.Frame{}, servo.ErrSensorUnavailable
	}
	return c.frame, nil
}

// Frames returns the number of frames received so far.
func (c *Client) Frames() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

// Run connects to the service and keeps reconnecting until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		start := time.Now()
		err := c.stream(ctx)
		c.clear()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}
		c.logger.WithError(err).Warnf("sensor disconnected, retrying in %s", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) stream(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for _, opt := range []map[string]bool{
		{"background": true},
		{"enableGestures": false},
	} {
		if err := conn.WriteJSON(opt); err != nil {
			return fmt.Errorf("configure stream: %w", err)
		}
	}
	c.logger.Info("sensor connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		frame, ok, err := DecodeFrame(data)
		if err != nil {
			c.logger.WithError(err).Debug("skipping message")
			continue
		}
		if !ok {
			continue
		}
		c.store(frame)
	}
}

func (c *Client) store(frame servo.Frame) {
	c.mu.Lock()
	c.frame = frame
	c.hasData = true
	c.frames++
	c.mu.Unlock()
}

func (c *Client) clear() {
	c.mu.Lock()
	c.frame = servo.Frame{}
	c.hasData = false
	c.mu.Unlock()
}
