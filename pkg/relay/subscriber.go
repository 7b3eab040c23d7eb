package relay

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/leapservo/pkg/servo"
)

// Subscriber receives payloads published on one channel of a remote hub.
type Subscriber struct {
	conn *websocket.Conn
}

// ChannelURL returns the websocket subscription URL for channel on the hub
// at base, e.g. ws://pi.local:8080.
func ChannelURL(base, channel string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + url.PathEscape(channel)
	return u.String(), nil
}

// Dial subscribes to channel on the hub at base.
func Dial(ctx context.Context, base, channel string) (*Subscriber, error) {
	target, err := ChannelURL(base, channel)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Subscriber{conn: conn}, nil
}

// Next blocks until the next payload arrives or the connection fails.
func (s *Subscriber) Next() (servo.Payload, error) {
	for {
		var p servo.Payload
		if err := s.conn.ReadJSON(&p); err != nil {
			return nil, err
		}
		if p.IsEmpty() {
			continue
		}
		return p, nil
	}
}

// Close closes the connection, unblocking Next.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}
