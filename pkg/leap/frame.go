// Package leap reads hand frames from the Leap Motion WebSocket service.
package leap

import (
	"encoding/json"
	"fmt"

	"github.com/gwillem/leapservo/pkg/servo"
)

// DefaultURL is the local Leap Motion service endpoint for protocol v6.
const DefaultURL = "ws://127.0.0.1:6437/v6.json"

type wireHand struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Direction []float64 `json:"direction"`
}

type wirePointable struct {
	ID       int  `json:"id"`
	HandID   int  `json:"handId"`
	Type     int  `json:"type"`
	Extended bool `json:"extended"`
	Tool     bool `json:"tool"`
}

type wireMessage struct {
	ServiceVersion string          `json:"serviceVersion"`
	Version        int             `json:"version"`
	ID             int64           `json:"id"`
	Timestamp      int64           `json:"timestamp"`
	Hands          []wireHand      `json:"hands"`
	Pointables     []wirePointable `json:"pointables"`
}

// DecodeFrame parses one service message. ok is false for messages that
// carry no frame, such as the version handshake.
func DecodeFrame(data []byte) (frame servo.Frame, ok bool, err error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return servo.Frame{}, false, fmt.Errorf("decode leap message: %w", err)
	}
	if msg.ServiceVersion != "" || (msg.ID == 0 && msg.Hands == nil) {
		return servo.Frame{}, false, nil
	}

	fingers := make(map[int][]servo.Finger, len(msg.Hands))
	for _, p := range msg.Pointables {
		if p.Tool {
			continue
		}
		fingers[p.HandID] = append(fingers[p.HandID], servo.Finger{Index: p.Type, Extended: p.Extended})
	}

	frame = servo.Frame{ID: msg.ID, Hands: make([]servo.Hand, 0, len(msg.Hands))}
	for _, h := range msg.Hands {
		hand := servo.Hand{
			ID:      h.ID,
			Side:    servo.Side(h.Type),
			Fingers: fingers[h.ID],
		}
		// Malformed directions stay zero and are rejected downstream
		if len(h.Direction) == 3 {
			hand.Direction = servo.Vector{X: h.Direction[0], Y: h.Direction[1], Z: h.Direction[2]}
		}
		frame.Hands = append(frame.Hands, hand)
	}
	return frame, true, nil
}
